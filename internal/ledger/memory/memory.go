package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"mess/internal/core"
	"mess/internal/ledger"
)

// SeedFile is the roster file read by NewFromFiles.
const SeedFile = "members.json"

type Store struct {
	mu      sync.Mutex
	members []core.Member
	period  core.Period
	history *core.History
}

func New(members []core.Member) *Store {
	return &Store{
		members: append([]core.Member(nil), members...),
		history: core.NewHistory(nil),
	}
}

// NewFromFiles seeds the roster from base/members.json when present. A
// missing or malformed seed yields an empty roster.
func NewFromFiles(base string) *Store {
	path := filepath.Join(base, SeedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return New(nil)
	}
	members, err := core.DecodeMembers(data)
	if err != nil {
		slog.Warn("Ignoring invalid member seed file", "path", path, "error", err)
		return New(nil)
	}
	return New(members)
}

func (s *Store) LoadMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Member(nil), s.members...), nil
}

func (s *Store) SaveMembers(_ context.Context, members []core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append([]core.Member(nil), members...)
	return nil
}

func (s *Store) LoadPeriod(_ context.Context) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period, nil
}

func (s *Store) SavePeriod(_ context.Context, p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = p
	return nil
}

func (s *Store) SaveRoster(_ context.Context, members []core.Member, p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append([]core.Member(nil), members...)
	s.period = p
	return nil
}

// AppendHistory records e as the newest entry, evicting beyond capacity.
func (s *Store) AppendHistory(_ context.Context, e core.HistoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("append history: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Push(e)
	return nil
}

func (s *Store) ListHistory(_ context.Context) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries(), nil
}

func (s *Store) GetHistory(_ context.Context, id string) (core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.history.Find(id)
	if !ok {
		return core.HistoryEntry{}, fmt.Errorf("%s: %w", id, ledger.ErrHistoryNotFound)
	}
	return e, nil
}

var _ ledger.Store = (*Store)(nil)
