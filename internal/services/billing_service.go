package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mess/internal/core"
	"mess/internal/ledger"
	"mess/internal/metrics"
	"mess/internal/notify"
)

var (
	// ErrNotifyUnavailable is returned when neither a queue nor a mail relay
	// is configured.
	ErrNotifyUnavailable = errors.New("notifications are not configured")
	ErrInvalidRequest    = errors.New("invalid request")
)

// Publisher queues background jobs. *amqp.Client satisfies it.
type Publisher interface {
	PublishBillNotification(ctx context.Context, historyID, memberName, to, month string) error
	PublishSheetExport(ctx context.Context, historyID string) error
}

// BillingService orchestrates roster edits, calculations and their side
// effects over a ledger.Store. Side-effect failures are logged and never
// undo a stored calculation.
type BillingService struct {
	store      ledger.Store
	publisher  Publisher
	dispatcher *notify.Dispatcher
	sheets     bool

	now   func() time.Time
	newID func() string

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

type Option func(*BillingService)

// WithPublisher routes notifications and sheet exports through a queue.
func WithPublisher(p Publisher) Option {
	return func(s *BillingService) { s.publisher = p }
}

// WithDispatcher enables inline email delivery when no queue is configured.
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(s *BillingService) { s.dispatcher = d }
}

// WithSheetExport queues a spreadsheet append after every calculation.
func WithSheetExport(enabled bool) Option {
	return func(s *BillingService) { s.sheets = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(s *BillingService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *BillingService) { s.newID = gen }
}

func NewBillingService(store ledger.Store, opts ...Option) *BillingService {
	s := &BillingService{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Members returns the current roster.
func (s *BillingService) Members(ctx context.Context) ([]core.Member, error) {
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	return members, nil
}

// Member looks up one member by case-insensitive name.
func (s *BillingService) Member(ctx context.Context, name string) (core.Member, error) {
	members, err := s.Members(ctx)
	if err != nil {
		return core.Member{}, err
	}
	roster, err := core.NewRoster(members)
	if err != nil {
		return core.Member{}, fmt.Errorf("stored roster: %w", err)
	}
	m, ok := roster.Get(name)
	if !ok {
		return core.Member{}, fmt.Errorf("%q: %w", name, core.ErrMemberNotFound)
	}
	return m, nil
}

// AddMember appends a member with zeroed amounts.
func (s *BillingService) AddMember(ctx context.Context, name string, guestOnly bool) (core.Member, error) {
	var added core.Member
	err := s.editRoster(ctx, func(r *core.Roster) error {
		m, err := r.Add(name, guestOnly)
		added = m
		return err
	})
	if err != nil {
		return core.Member{}, err
	}
	slog.InfoContext(ctx, "Member added", "member", added.Name, "guest_only", added.IsGuestOnly)
	return added, nil
}

// UpdateMember applies a partial update to one member.
func (s *BillingService) UpdateMember(ctx context.Context, name string, patch core.MemberPatch) (core.Member, error) {
	var updated core.Member
	err := s.editRoster(ctx, func(r *core.Roster) error {
		m, err := r.Update(name, patch)
		updated = m
		return err
	})
	if err != nil {
		return core.Member{}, err
	}
	return updated, nil
}

// RemoveMember deletes one member.
func (s *BillingService) RemoveMember(ctx context.Context, name string) error {
	if err := s.editRoster(ctx, func(r *core.Roster) error { return r.Remove(name) }); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Member removed", "member", name)
	return nil
}

// ImportMembers replaces the roster with an exported member list.
func (s *BillingService) ImportMembers(ctx context.Context, data []byte) ([]core.Member, error) {
	members, err := core.DecodeMembers(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveRosterLocked(ctx, members, true); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Members imported", "members", len(members))
	return members, nil
}

// ExportMembers renders the roster in the import format.
func (s *BillingService) ExportMembers(ctx context.Context) ([]byte, error) {
	members, err := s.Members(ctx)
	if err != nil {
		return nil, err
	}
	return core.EncodeMembers(members)
}

// editRoster runs fn against the stored roster and persists the result. The
// cook charge is re-derived when the billable headcount changes.
func (s *BillingService) editRoster(ctx context.Context, fn func(*core.Roster) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	roster, err := core.NewRoster(members)
	if err != nil {
		return fmt.Errorf("stored roster: %w", err)
	}
	before := roster.NonGuestCount()

	if err := fn(roster); err != nil {
		return err
	}

	return s.saveRosterLocked(ctx, roster.Members(), roster.NonGuestCount() != before)
}

// saveRosterLocked stores members. When resync is set the cook charge is
// re-derived for the new headcount and written in the same store call.
func (s *BillingService) saveRosterLocked(ctx context.Context, members []core.Member, resync bool) error {
	if !resync {
		if err := s.store.SaveMembers(ctx, members); err != nil {
			return fmt.Errorf("save members: %w", err)
		}
		return nil
	}
	p, err := s.store.LoadPeriod(ctx)
	if err != nil {
		return fmt.Errorf("load period: %w", err)
	}
	p.Cook.Resync(core.NonGuestCount(members))
	if err := s.store.SaveRoster(ctx, members, p); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

// PeriodInput replaces the period's expense fields. Cook is interpreted
// according to CookMode: a total or a per-head rate.
type PeriodInput struct {
	Rice      float64       `json:"rice"`
	Marketing float64       `json:"marketing"`
	Gas       float64       `json:"gas"`
	Paper     float64       `json:"paper"`
	Other     float64       `json:"other"`
	BoundMeal float64       `json:"boundMeal"`
	CookMode  core.CookMode `json:"cookMode"`
	Cook      float64       `json:"cook"`
}

// Period returns the current expense state.
func (s *BillingService) Period(ctx context.Context) (core.Period, error) {
	p, err := s.store.LoadPeriod(ctx)
	if err != nil {
		return core.Period{}, fmt.Errorf("load period: %w", err)
	}
	return p, nil
}

// UpdatePeriod validates and stores new expense inputs.
func (s *BillingService) UpdatePeriod(ctx context.Context, in PeriodInput) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return core.Period{}, fmt.Errorf("load members: %w", err)
	}
	n := core.NonGuestCount(members)

	p := core.Period{
		Rice:      in.Rice,
		Marketing: in.Marketing,
		Gas:       in.Gas,
		Paper:     in.Paper,
		Other:     in.Other,
		BoundMeal: in.BoundMeal,
	}
	switch in.CookMode {
	case core.CookModePerHead:
		p.Cook.SetPerHead(in.Cook, n)
	case core.CookModeTotal, "":
		p.Cook.SetTotal(in.Cook, n)
	default:
		return core.Period{}, fmt.Errorf("cook mode %q: %w", in.CookMode, ErrInvalidRequest)
	}
	if err := p.Inputs().Validate(); err != nil {
		return core.Period{}, err
	}

	if err := s.store.SavePeriod(ctx, p); err != nil {
		return core.Period{}, fmt.Errorf("save period: %w", err)
	}
	return p, nil
}

// Calculate bills the current roster against the current period, records
// the result in history and queues the spreadsheet export. Nothing is
// written when the calculation fails.
func (s *BillingService) Calculate(ctx context.Context) (core.HistoryEntry, error) {
	start := time.Now()

	s.mu.Lock()
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		s.mu.Unlock()
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		return core.HistoryEntry{}, fmt.Errorf("load members: %w", err)
	}
	period, err := s.store.LoadPeriod(ctx)
	if err != nil {
		s.mu.Unlock()
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		return core.HistoryEntry{}, fmt.Errorf("load period: %w", err)
	}
	period.Cook.Resync(core.NonGuestCount(members))
	inputs := period.Inputs()

	calc, err := core.Calculate(members, inputs)
	if err != nil {
		s.mu.Unlock()
		metrics.ObserveCalculation(metrics.ResultInvalid, time.Since(start))
		slog.WarnContext(ctx, "Calculation rejected", "error", err, "members", len(members))
		return core.HistoryEntry{}, err
	}

	entry := core.NewHistoryEntry(s.newID(), s.now(), members, inputs, calc)
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.mu.Unlock()
		metrics.ObserveCalculation(metrics.ResultError, time.Since(start))
		return core.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	s.mu.Unlock()

	metrics.ObserveCalculation(metrics.ResultSuccess, time.Since(start))
	if list, err := s.store.ListHistory(ctx); err == nil {
		metrics.SetHistorySize(len(list))
	}

	slog.InfoContext(ctx, "Bill calculated",
		"history_id", entry.ID,
		"members", len(members),
		"billable_members", calc.Overview.TotalMembers,
		"total_meals", calc.Overview.TotalMeals,
		"meal_rate", calc.Overview.MealRate)

	if s.sheets && s.publisher != nil {
		if err := s.publisher.PublishSheetExport(ctx, entry.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to queue sheet export", "history_id", entry.ID, "error", err)
		}
	}

	return entry, nil
}

// History returns the calculation log, newest first.
func (s *BillingService) History(ctx context.Context) ([]core.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// HistoryEntry returns one recorded calculation.
func (s *BillingService) HistoryEntry(ctx context.Context, id string) (core.HistoryEntry, error) {
	return s.store.GetHistory(ctx, id)
}

// Recipient pairs a member with an email address.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NotifyResult is the per-recipient delivery status.
type NotifyResult struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"` // queued, sent or failed
	Error  string `json:"error,omitempty"`
}

// NotifyReport summarizes a notification run.
type NotifyReport struct {
	HistoryID string         `json:"historyId"`
	Queued    int            `json:"queued"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Results   []NotifyResult `json:"results"`
}

const (
	StatusQueued = "queued"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notify emails each recipient their bill from the given calculation.
// Delivery failures are reported per recipient and never touch history.
func (s *BillingService) Notify(ctx context.Context, historyID, month string, recipients []Recipient) (NotifyReport, error) {
	if s.publisher == nil && s.dispatcher == nil {
		return NotifyReport{}, ErrNotifyUnavailable
	}
	month = strings.TrimSpace(month)
	if month == "" {
		return NotifyReport{}, fmt.Errorf("month is required: %w", ErrInvalidRequest)
	}

	entry, err := s.store.GetHistory(ctx, historyID)
	if err != nil {
		return NotifyReport{}, err
	}

	report := NotifyReport{HistoryID: historyID, Results: make([]NotifyResult, len(recipients))}
	var (
		pending []notify.Request
		slots   []int
	)
	for i, rcp := range recipients {
		report.Results[i] = NotifyResult{Name: rcp.Name, Email: rcp.Email}
		req, err := notify.NewRequest(entry, rcp.Name, rcp.Email, month)
		if err != nil {
			report.Results[i].Status = StatusFailed
			report.Results[i].Error = err.Error()
			continue
		}
		report.Results[i].Name = req.MemberName

		if s.publisher != nil {
			if err := s.publisher.PublishBillNotification(ctx, historyID, req.MemberName, req.To, month); err != nil {
				slog.ErrorContext(ctx, "Failed to queue bill notification", "member", req.MemberName, "error", err)
				report.Results[i].Status = StatusFailed
				report.Results[i].Error = err.Error()
				metrics.IncNotification("queue", metrics.ResultError)
				continue
			}
			report.Results[i].Status = StatusQueued
			metrics.IncNotification("queue", metrics.ResultQueued)
			continue
		}
		pending = append(pending, req)
		slots = append(slots, i)
	}

	if len(pending) > 0 {
		for j, o := range s.dispatcher.SendAll(ctx, pending) {
			i := slots[j]
			if o.Err != nil {
				report.Results[i].Status = StatusFailed
				report.Results[i].Error = o.Err.Error()
				metrics.IncNotification("inline", metrics.ResultError)
				continue
			}
			report.Results[i].Status = StatusSent
			metrics.IncNotification("inline", metrics.ResultSuccess)
		}
	}

	for _, r := range report.Results {
		switch r.Status {
		case StatusQueued:
			report.Queued++
		case StatusSent:
			report.Sent++
		default:
			report.Failed++
		}
	}

	slog.InfoContext(ctx, "Bill notifications processed",
		"history_id", historyID,
		"queued", report.Queued,
		"sent", report.Sent,
		"failed", report.Failed)
	return report, nil
}

// IsNotFound reports whether err means a requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrHistoryNotFound) || errors.Is(err, core.ErrMemberNotFound)
}

// IsValidationError reports whether err stems from user input.
func IsValidationError(err error) bool {
	return core.IsValidationError(err) || errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, notify.ErrInvalidRecipient)
}
