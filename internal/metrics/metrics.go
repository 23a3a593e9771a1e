package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "mess_"

	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultError   = "error"
	ResultQueued  = "queued"
)

var registerOnce sync.Once

var (
	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "calculations_total",
			Help: "Total bill calculations by result",
		},
		[]string{"result"},
	)
	calculationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "calculation_latency_seconds",
			Help:    "Bill calculation latency in seconds, including persistence",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "notifications_total",
			Help: "Total bill notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "exports_total",
			Help: "Total bill exports by format and result",
		},
		[]string{"format", "result"},
	)
	exportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "export_latency_seconds",
			Help:    "Bill export latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
	historyEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "history_entries",
			Help: "Number of calculations held in the history log",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "http_requests_total",
			Help: "Total HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	workerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "worker_messages_total",
			Help: "Total queue messages handled by type and result",
		},
		[]string{"type", "result"},
	)
)

// Init registers the collectors with the default registry. Observations made
// before Init are kept and exported once registered.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			calculationsTotal,
			calculationLatency,
			notificationsTotal,
			exportsTotal,
			exportLatency,
			historyEntries,
			httpRequests,
			httpLatency,
			workerMessages,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveCalculation(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	calculationsTotal.WithLabelValues(result).Inc()
	calculationLatency.WithLabelValues(result).Observe(duration.Seconds())
}

func IncNotification(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	notificationsTotal.WithLabelValues(channel, result).Inc()
}

func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	exportsTotal.WithLabelValues(format, result).Inc()
	exportLatency.WithLabelValues(format).Observe(duration.Seconds())
}

func SetHistorySize(n int) {
	historyEntries.Set(float64(n))
}

func ObserveHTTPRequest(method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func IncWorkerMessage(msgType, result string) {
	workerMessages.WithLabelValues(msgType, result).Inc()
}
