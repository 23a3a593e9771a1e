package main

import (
	"context"
	"errors"
	"os"
	"time"

	"mess/internal/backend"
	"mess/internal/cli"
	applog "mess/internal/log"
	"mess/internal/metrics"
	"mess/internal/notify"
	"mess/internal/sheets"
	"mess/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	metrics.Init()

	logger.Info("Starting mess-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	// The worker reads calculations written by the server, so both must
	// share the SQLite file.
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Error("The worker requires DATA_BACKEND=sqlite", applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer res.Cleanup()

	var sender notify.Sender
	if c := cli.MailSender(logger, cfg); c != nil {
		sender = c
	}
	var publisher sheets.BillPublisher
	sheetClient, err := cli.SheetPublisher(context.Background(), logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	if sheetClient != nil {
		publisher = sheetClient
	}

	queue, err := cli.ConnectQueue(logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer queue.Close()

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	w := worker.NewBillWorker(res.Store, sender, publisher)
	go func() {
		if err := queue.ConsumeWithRetry(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
			cli.Fatal(logger, "Message consumption stopped", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
