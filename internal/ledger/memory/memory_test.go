package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mess/internal/core"
	"mess/internal/ledger"
)

func TestMemoryStoreMembersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	members := []core.Member{{Name: "A", Meals: 30}, {Name: "B", Meals: 20, IsGuestOnly: true}}
	if err := s.SaveMembers(ctx, members); err != nil {
		t.Fatalf("save: %v", err)
	}
	members[0].Meals = 99

	got, err := s.LoadMembers(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Meals != 30 || !got[1].IsGuestOnly {
		t.Fatalf("unexpected members: %+v", got)
	}
}

func TestMemoryStorePeriod(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	p := core.Period{Rice: 100, BoundMeal: 10}
	p.Cook.SetTotal(900, 3)
	if err := s.SavePeriod(ctx, p); err != nil {
		t.Fatalf("save period: %v", err)
	}
	got, _ := s.LoadPeriod(ctx)
	if got != p {
		t.Fatalf("period = %+v, want %+v", got, p)
	}
}

func TestMemoryStoreHistoryCapped(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	for i := 0; i < core.HistoryCapacity+3; i++ {
		e := core.HistoryEntry{ID: fmt.Sprintf("h%d", i), CreatedAt: time.Unix(int64(i), 0)}
		if err := s.AppendHistory(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	list, _ := s.ListHistory(ctx)
	if len(list) != core.HistoryCapacity {
		t.Fatalf("len = %d, want %d", len(list), core.HistoryCapacity)
	}
	if list[0].ID != "h12" {
		t.Fatalf("newest = %s, want h12", list[0].ID)
	}
	if _, err := s.GetHistory(ctx, "h0"); !errors.Is(err, ledger.ErrHistoryNotFound) {
		t.Fatalf("evicted entry lookup err = %v", err)
	}
	if e, err := s.GetHistory(ctx, "h5"); err != nil || e.ID != "h5" {
		t.Fatalf("get h5 = %+v, %v", e, err)
	}
	if err := s.AppendHistory(ctx, core.HistoryEntry{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestNewFromFilesSeedsRoster(t *testing.T) {
	dir := t.TempDir()
	if got, _ := NewFromFiles(dir).LoadMembers(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty roster without seed, got %v", got)
	}

	mustWrite := func(content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644); err != nil {
			t.Fatalf("write seed: %v", err)
		}
	}

	mustWrite(`[{"name":"Rahim","meals":30},{"name":"Karim","isGuest":true}]`)
	got, _ := NewFromFiles(dir).LoadMembers(context.Background())
	if len(got) != 2 || got[0].Name != "Rahim" || !got[1].IsGuestOnly {
		t.Fatalf("unexpected seeded roster: %+v", got)
	}

	mustWrite(`{"name":"not an array"}`)
	if got, _ := NewFromFiles(dir).LoadMembers(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty roster for malformed seed, got %v", got)
	}
}

func TestMemoryStoreHistoryIsolation(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	e := core.HistoryEntry{
		ID:        "calc-1",
		CreatedAt: time.Now(),
		Members:   []core.Member{{Name: "A", Meals: 10}},
		Results:   []core.BillResult{{Member: core.Member{Name: "A"}, Outstanding: 100}},
	}
	if err := s.AppendHistory(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}
	e.Results[0].Outstanding = 1

	list, err := s.ListHistory(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list[0].Results[0].Outstanding = 999999
	list[0].Members[0].Name = "Z"

	got, err := s.GetHistory(ctx, "calc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Results[0].Outstanding != 100 || got.Members[0].Name != "A" {
		t.Fatalf("stored entry changed: %+v", got)
	}
}
