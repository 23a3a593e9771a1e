package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLRU(size int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](size, ttl)
	c.now = clk.Now
	return c, clk
}

func TestLRU_GetSetExpiry(t *testing.T) {
	c, clk := newTestLRU(4, time.Minute)

	exp := c.Set("a", "1")
	if !exp.Equal(clk.t.Add(time.Minute)) {
		t.Errorf("expiry = %v", exp)
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	clk.Advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should expire exactly at its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on Get, len = %d", c.Len())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now least recently used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}

	c.Set("a", "updated")
	if v, _ := c.Get("a"); v != "updated" || c.Len() != 2 {
		t.Errorf("overwrite: v=%q len=%d", v, c.Len())
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
}

func TestLRU_CleanExpired(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("old1", "x")
	c.Set("old2", "x")
	clk.Advance(30 * time.Second)
	c.Set("fresh", "y")
	clk.Advance(45 * time.Second)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry removed")
	}
}

func TestShareLinks(t *testing.T) {
	s := NewShareLinks(time.Hour)
	token, exp := s.Create("hist-1")
	if token == "" || time.Until(exp) <= 0 {
		t.Fatalf("Create = %q, %v", token, exp)
	}
	if id, ok := s.Resolve(token); !ok || id != "hist-1" {
		t.Fatalf("Resolve = %q, %v", id, ok)
	}
	other, _ := s.Create("hist-1")
	if other == token {
		t.Error("tokens must be unique per share")
	}
	s.Revoke(token)
	if _, ok := s.Resolve(token); ok {
		t.Error("revoked token still resolves")
	}
	if _, ok := s.Resolve("unknown"); ok {
		t.Error("unknown token resolved")
	}
}

func TestManagerSweepAndRun(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "x")
	clk.Advance(2 * time.Minute)

	m := NewManager(c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx, 10*time.Millisecond)
	cancel()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
