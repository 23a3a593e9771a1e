package sheets

import (
	"context"

	"mess/internal/core"
)

// Ports for outbound adapters.
type (
	// BillPublisher appends a recorded calculation to an external ledger.
	BillPublisher interface {
		// PublishBills writes one row per member result and returns a
		// reference to the written range.
		PublishBills(ctx context.Context, entry core.HistoryEntry) (rowRef string, err error)
	}
)
