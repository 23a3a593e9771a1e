package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"mess/internal/cache"
	applog "mess/internal/log"
	"mess/internal/metrics"
	"mess/internal/middleware/ratelimit"
	"mess/internal/middleware/security"
	"mess/internal/middleware/trace"
	"mess/internal/services"
	appweb "mess/web"
)

// Config wires the server to its collaborators. Ready reports backend
// health for /readyz and may be nil. TrustedProxies are extra CIDRs whose
// forwarded headers are believed.
type Config struct {
	Addr           string
	Billing        *services.BillingService
	Shares         *cache.ShareLinks
	Ready          func(context.Context) error
	Logger         *applog.Logger
	Limiter        *ratelimit.Limiter
	TrustedProxies []string
}

type Server struct {
	http.Server
	billing   *services.BillingService
	shares    *cache.ShareLinks
	ready     func(context.Context) error
	templates *template.Template
	logger    *applog.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	shares := cfg.Shares
	if shares == nil {
		shares = cache.NewShareLinks(24 * time.Hour)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	clientIP, err := security.NewClientIP(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		billing: cfg.Billing,
		shares:  shares,
		ready:   cfg.Ready,
		logger:  logger,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/members", s.handleListMembers)
	mux.HandleFunc("POST /api/members", s.handleAddMember)
	mux.HandleFunc("GET /api/members/{name}", s.handleGetMember)
	mux.HandleFunc("PATCH /api/members/{name}", s.handleUpdateMember)
	mux.HandleFunc("DELETE /api/members/{name}", s.handleRemoveMember)
	mux.HandleFunc("GET /api/members/export", s.handleExportMembers)
	mux.HandleFunc("POST /api/members/import", s.handleImportMembers)

	mux.HandleFunc("GET /api/expenses", s.handleGetPeriod)
	mux.HandleFunc("PUT /api/expenses", s.handleUpdatePeriod)

	mux.HandleFunc("POST /api/calculate", s.handleCalculate)
	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleGetHistory)
	mux.HandleFunc("GET /api/history/{id}/print.pdf", s.handlePrintPDF)
	mux.HandleFunc("GET /api/history/{id}/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /api/history/{id}/share", s.handleCreateShare)
	mux.HandleFunc("POST /api/history/{id}/notify", s.handleNotify)
	mux.HandleFunc("GET /share/{token}", s.handleResolveShare)
	mux.HandleFunc("DELETE /api/share/{token}", s.handleRevokeShare)

	var handler http.Handler = mux
	handler = limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, clientIP.Extract(r),
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(logger, clientIP.Extract).Handler(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	data := struct {
		Year int
	}{Year: time.Now().Year()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err)
	}
}
