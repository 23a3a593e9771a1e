package cli

import (
	"context"

	"mess/internal/amqp"
	"mess/internal/config"
	applog "mess/internal/log"
	"mess/internal/notify"
	gsheet "mess/internal/sheets/google"
)

// ConnectQueue dials the broker when AMQP_URL is set. A nil client with a nil
// error means queueing is disabled.
func ConnectQueue(logger *applog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, notifications are sent inline")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to AMQP broker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// MailSender returns the relay client, or nil when mail is not configured.
func MailSender(logger *applog.Logger, cfg *config.Config) *notify.Client {
	if !cfg.MailEnabled() {
		logger.Info("Mail relay not configured, bill emails disabled")
		return nil
	}
	return notify.NewClient(cfg.MailRelayURL, cfg.MailSender, cfg.MailAPIKey, cfg.NotifyTimeout)
}

// SheetPublisher returns the Google Sheets client with its header row in
// place, or nil when publishing is disabled.
func SheetPublisher(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*gsheet.Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not write sheet header", applog.FieldError, err)
	}
	return client, nil
}
