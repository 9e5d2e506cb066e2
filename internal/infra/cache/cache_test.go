package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeRemote records calls and can be told to fail.
type fakeRemote struct {
	entries map[string][]byte
	fail    bool
	gets    int
	sets    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{entries: make(map[string][]byte)}
}

func (f *fakeRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.gets++
	if f.fail {
		return nil, false, errors.New("connection refused")
	}
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.sets++
	if f.fail {
		return errors.New("connection refused")
	}
	f.entries[key] = value
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, key string) (int, error) {
	if f.fail {
		return 0, errors.New("connection refused")
	}
	if _, ok := f.entries[key]; !ok {
		return 0, nil
	}
	delete(f.entries, key)
	return 1, nil
}

func (f *fakeRemote) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if f.fail {
		return 0, errors.New("connection refused")
	}
	n := len(f.entries)
	f.entries = make(map[string][]byte)
	return n, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	if f.fail {
		return errors.New("connection refused")
	}
	return nil
}

func TestCache_SetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeRemote(), "dd:", nil)

	c.Set(ctx, "k", []byte(`{"x":1}`), time.Hour)

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Expected hit after set")
	}
	if string(got) != `{"x":1}` {
		t.Errorf("Got %s", got)
	}
}

func TestCache_ExpiryIsTerminal(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "", nil)

	c.Set(ctx, "k", []byte("v"), 30*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if _, ok := c.Get(ctx, "k"); ok {
			t.Fatalf("Get %d returned a value after expiry", i)
		}
	}
}

func TestCache_LocalOnlyMode(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "", nil)

	c.Set(ctx, "k", []byte(`{"x":1}`), time.Hour)

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != `{"x":1}` {
		t.Fatalf("Local-only get failed: ok=%v value=%s", ok, got)
	}
	if !c.HealthCheck(ctx) {
		t.Error("Local-only mode should report healthy")
	}
}

func TestCache_RemoteFailureDegradesToLocal(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := New(remote, "dd:", nil)

	c.Set(ctx, "k", []byte("v"), time.Hour)

	// Remote goes down: reads must degrade to the local copy.
	remote.fail = true

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected local fallback hit, got ok=%v value=%s", ok, got)
	}
	if c.HealthCheck(ctx) {
		t.Error("HealthCheck should fail when remote is down")
	}

	// Writes with a failing remote still land locally.
	c.Set(ctx, "k2", []byte("v2"), time.Hour)
	if _, ok := c.Get(ctx, "k2"); !ok {
		t.Error("Expected local write to survive remote failure")
	}
}

func TestCache_RemotePrefix(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := New(remote, "dd:", nil)

	c.Set(ctx, "alpha:quote:abc", []byte("v"), time.Hour)

	if _, ok := remote.entries["dd:alpha:quote:abc"]; !ok {
		t.Errorf("Remote keys should carry the configured prefix, got %v", remote.entries)
	}
}

func TestCache_DeleteCounts(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeRemote(), "dd:", nil)

	c.Set(ctx, "k", []byte("v"), time.Hour)

	if n := c.Delete(ctx, "k"); n != 2 {
		t.Errorf("Expected 2 removals (local+remote), got %d", n)
	}
	if n := c.Delete(ctx, "k"); n != 0 {
		t.Errorf("Expected 0 removals on repeat delete, got %d", n)
	}
}

func TestCache_ClearPrefix(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "", nil)

	c.Set(ctx, "alpha:quote:1", []byte("v"), time.Hour)
	c.Set(ctx, "alpha:quote:2", []byte("v"), time.Hour)
	c.Set(ctx, "beta:quote:1", []byte("v"), time.Hour)

	if n := c.ClearPrefix(ctx, "alpha:"); n != 2 {
		t.Errorf("Expected 2 removals, got %d", n)
	}
	if _, ok := c.Get(ctx, "beta:quote:1"); !ok {
		t.Error("ClearPrefix removed an unrelated key")
	}
}

func TestCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "", nil)

	c.Set(ctx, "k", []byte("v"), time.Hour)
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestLocalStore_SweepEvictsExpired(t *testing.T) {
	s := newLocalStore()

	for i := 0; i < sweepThreshold; i++ {
		s.set(fmt.Sprintf("expired-%d", i), []byte("v"), time.Nanosecond)
	}
	time.Sleep(5 * time.Millisecond)

	// Crossing the threshold triggers the sweep of expired entries.
	s.set("fresh", []byte("v"), time.Hour)

	if n := s.len(); n != 1 {
		t.Errorf("Expected sweep to leave 1 entry, got %d", n)
	}
}
