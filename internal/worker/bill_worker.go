package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mess/internal/amqp"
	"mess/internal/ledger"
	"mess/internal/metrics"
	"mess/internal/notify"
	"mess/internal/sheets"
)

// BillWorker handles queued jobs for recorded calculations: member emails
// and spreadsheet appends. Jobs that can never succeed are logged and
// acknowledged; transient failures are returned so the message is requeued.
type BillWorker struct {
	history   ledger.HistoryStore
	sender    notify.Sender
	publisher sheets.BillPublisher
}

// NewBillWorker builds a worker. sender and publisher may be nil when the
// corresponding integration is disabled.
func NewBillWorker(history ledger.HistoryStore, sender notify.Sender, publisher sheets.BillPublisher) *BillWorker {
	return &BillWorker{
		history:   history,
		sender:    sender,
		publisher: publisher,
	}
}

// Handle dispatches one queue message by type.
func (w *BillWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	var err error
	switch msg.Type {
	case amqp.TypeBillNotification:
		err = w.handleNotification(ctx, msg)
	case amqp.TypeSheetPublish:
		err = w.handleSheetPublish(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown type", "type", msg.Type)
		return nil
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncWorkerMessage(string(msg.Type), result)
	return err
}

func (w *BillWorker) handleNotification(ctx context.Context, msg *amqp.Message) error {
	if w.sender == nil {
		slog.WarnContext(ctx, "Mail relay not configured, dropping bill notification",
			"history_id", msg.HistoryID, "member", msg.MemberName)
		return nil
	}

	entry, err := w.history.GetHistory(ctx, msg.HistoryID)
	if errors.Is(err, ledger.ErrHistoryNotFound) {
		slog.WarnContext(ctx, "Calculation no longer in history, dropping notification",
			"history_id", msg.HistoryID, "member", msg.MemberName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get history entry: %w", err)
	}

	req, err := notify.NewRequest(entry, msg.MemberName, msg.To, msg.Month)
	if err != nil {
		slog.ErrorContext(ctx, "Cannot build bill notification",
			"history_id", msg.HistoryID, "member", msg.MemberName, "error", err)
		return nil
	}

	if err := w.sender.Send(ctx, req); err != nil {
		metrics.IncNotification("queue", metrics.ResultError)
		return fmt.Errorf("send bill email: %w", err)
	}
	metrics.IncNotification("queue", metrics.ResultSuccess)
	return nil
}

func (w *BillWorker) handleSheetPublish(ctx context.Context, msg *amqp.Message) error {
	if w.publisher == nil {
		slog.DebugContext(ctx, "Sheet publishing disabled, skipping", "history_id", msg.HistoryID)
		return nil
	}

	entry, err := w.history.GetHistory(ctx, msg.HistoryID)
	if errors.Is(err, ledger.ErrHistoryNotFound) {
		slog.WarnContext(ctx, "Calculation no longer in history, skipping sheet export",
			"history_id", msg.HistoryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get history entry: %w", err)
	}

	ref, err := w.publisher.PublishBills(ctx, entry)
	if err != nil {
		return fmt.Errorf("publish bills to sheet: %w", err)
	}
	slog.InfoContext(ctx, "Calculation exported to sheet", "history_id", entry.ID, "range", ref)
	return nil
}
