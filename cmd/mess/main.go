package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mess/internal/backend"
	"mess/internal/cache"
	"mess/internal/cli"
	apphttp "mess/internal/http"
	applog "mess/internal/log"
	"mess/internal/metrics"
	"mess/internal/middleware/ratelimit"
	"mess/internal/notify"
	"mess/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	metrics.Init()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, applog.FieldBackend, cfg.DataBackend)
	}

	opts := []services.Option{services.WithSheetExport(cfg.SheetsEnabled())}
	queue, err := cli.ConnectQueue(logger, cfg)
	if err != nil {
		logger.Warn("Failed to connect to AMQP, falling back to inline notifications", applog.FieldError, err)
	}
	if queue != nil {
		opts = append(opts, services.WithPublisher(queue))
	}
	if sender := cli.MailSender(logger, cfg); sender != nil {
		opts = append(opts, services.WithDispatcher(notify.NewDispatcher(sender, cfg.NotifyConcurrency)))
	}
	billing := services.NewBillingService(res.Store, opts...)

	shares := cache.NewShareLinks(cfg.ShareTTL)
	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = cfg.WriteRateLimit
	limiter := ratelimit.NewLimiter(limitCfg)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:    ":" + cfg.Port,
		Billing: billing,
		Shares:  shares,
		Ready:   res.Ping,
		Logger:  logger.WithComponent(applog.ComponentHTTP),
		Limiter: limiter,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to configure HTTP server", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if queue != nil {
			_ = queue.Close()
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	sweeper := cache.NewManager(shares)
	go sweeper.Run(ctx, 10*time.Minute)
	go limiter.Run(ctx)

	logger.Info("Starting mess server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"queue_enabled", queue != nil,
		"sheets_enabled", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
