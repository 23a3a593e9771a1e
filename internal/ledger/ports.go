package ledger

import (
	"context"
	"errors"

	"mess/internal/core"
)

// ErrHistoryNotFound is returned when a history entry ID is unknown.
var ErrHistoryNotFound = errors.New("history entry not found")

// Ports for outbound adapters.
type (
	// MemberStore persists the current roster. SaveMembers replaces the whole
	// list; the last write wins.
	MemberStore interface {
		LoadMembers(ctx context.Context) ([]core.Member, error)
		SaveMembers(ctx context.Context, members []core.Member) error
	}

	// ExpenseStore persists the expense inputs of the current period.
	ExpenseStore interface {
		LoadPeriod(ctx context.Context) (core.Period, error)
		SavePeriod(ctx context.Context, p core.Period) error
	}

	// HistoryStore is the bounded calculation log. Implementations keep at
	// most core.HistoryCapacity entries, newest first.
	HistoryStore interface {
		AppendHistory(ctx context.Context, e core.HistoryEntry) error
		ListHistory(ctx context.Context) ([]core.HistoryEntry, error)
		GetHistory(ctx context.Context, id string) (core.HistoryEntry, error)
	}

	// RosterStore writes the roster together with the period it derives
	// the cook charge for. Either both are stored or neither is.
	RosterStore interface {
		SaveRoster(ctx context.Context, members []core.Member, p core.Period) error
	}

	// Store groups every port a backend provides.
	Store interface {
		MemberStore
		ExpenseStore
		RosterStore
		HistoryStore
	}
)
