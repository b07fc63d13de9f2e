package longpoll

import (
	"context"
	"testing"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
)

func testLongPollConfig() cfgpkg.LongPollConfig {
	return cfgpkg.LongPollConfig{MaxBuffered: 200, MaxWaiters: 5000, TimeoutMs: 25_000, IdleEvictMs: 120_000, SweepIntervalMs: 30_000}
}

func TestSubscribeDrainsBufferedFirst(t *testing.T) {
	b := NewBuffer(testLongPollConfig(), nil)
	start := time.Now().Add(-time.Second)
	b.Push("t1", event.Event{Type: "a"})
	b.Push("t1", event.Event{Type: "b"})

	events, watermark := b.Subscribe(context.Background(), "t1", 0, start)
	if len(events) != 2 {
		t.Fatalf("want 2 buffered events, got %d", len(events))
	}
	if events[0].Type != "a" || events[1].Type != "b" {
		t.Fatalf("wrong order: %+v", events)
	}

	// The watermark excludes already-returned events from the next poll.
	events, _ = b.Subscribe(context.Background(), "t1", 0, watermark)
	if len(events) != 0 {
		t.Fatalf("watermark poll returned %d events", len(events))
	}
}

func TestPushWakesWaiter(t *testing.T) {
	b := NewBuffer(testLongPollConfig(), nil)
	done := make(chan []event.Event, 1)
	go func() {
		events, _ := b.Subscribe(context.Background(), "t1", 0, time.Now())
		done <- events
	}()
	// Let the waiter park before pushing.
	deadline := time.Now().Add(time.Second)
	for b.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}
	b.Push("t1", event.Event{Type: "task.created"})
	select {
	case events := <-done:
		if len(events) != 1 || events[0].Type != "task.created" {
			t.Fatalf("woken with %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("push did not wake waiter")
	}
	if b.Waiters() != 0 {
		t.Fatalf("waiter leaked: %d", b.Waiters())
	}
}

func TestScopedWaiterIgnoresOtherProperties(t *testing.T) {
	b := NewBuffer(testLongPollConfig(), nil)
	done := make(chan []event.Event, 1)
	go func() {
		events, _ := b.Subscribe(context.Background(), "t1", 7, time.Now())
		done <- events
	}()
	deadline := time.Now().Add(time.Second)
	for b.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}
	b.Push("t1", event.Event{Type: "x", PropertyID: 9})
	select {
	case <-done:
		t.Fatalf("waiter woke for a different property")
	case <-time.After(50 * time.Millisecond):
	}
	b.Push("t1", event.Event{Type: "y", PropertyID: 7})
	select {
	case events := <-done:
		if len(events) != 1 || events[0].Type != "y" {
			t.Fatalf("woken with %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("matching push did not wake waiter")
	}
}

func TestSubscribeTimesOutEmpty(t *testing.T) {
	cfg := testLongPollConfig()
	cfg.TimeoutMs = 50
	b := NewBuffer(cfg, nil)

	start := time.Now()
	events, _ := b.Subscribe(context.Background(), "t1", 0, start)
	elapsed := time.Since(start)
	if len(events) != 0 {
		t.Fatalf("timeout should return empty, got %d events", len(events))
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("returned before the timeout: %v", elapsed)
	}
	if b.Waiters() != 0 {
		t.Fatalf("timed-out waiter leaked")
	}
}

func TestBufferDropsOldestOnOverflow(t *testing.T) {
	cfg := testLongPollConfig()
	cfg.MaxBuffered = 3
	b := NewBuffer(cfg, nil)
	for i := 0; i < 5; i++ {
		b.Push("t1", event.Event{Type: string(rune('a' + i))})
	}
	events, _ := b.Subscribe(context.Background(), "t1", 0, time.Time{})
	if len(events) != 3 {
		t.Fatalf("buffer holds %d events, want 3", len(events))
	}
	if events[0].Type != "c" || events[2].Type != "e" {
		t.Fatalf("oldest not dropped first: %+v", events)
	}
}

func TestWaiterCapReturnsImmediately(t *testing.T) {
	cfg := testLongPollConfig()
	cfg.MaxWaiters = 1
	b := NewBuffer(cfg, nil)
	go b.Subscribe(context.Background(), "t1", 0, time.Now())
	deadline := time.Now().Add(time.Second)
	for b.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}

	start := time.Now()
	events, _ := b.Subscribe(context.Background(), "t1", 0, time.Now())
	if len(events) != 0 {
		t.Fatalf("capped subscribe returned events")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("capped subscribe blocked")
	}
	b.Push("t1", event.Event{Type: "x"}) // release the parked waiter
}

func TestSweepEvictsIdleTenants(t *testing.T) {
	cfg := testLongPollConfig()
	cfg.IdleEvictMs = 1
	b := NewBuffer(cfg, nil)
	b.Push("t1", event.Event{Type: "x"})
	time.Sleep(5 * time.Millisecond)
	b.Sweep()
	if b.TenantCount() != 0 {
		t.Fatalf("idle tenant not evicted")
	}
}

func TestSweepKeepsTenantsWithWaiters(t *testing.T) {
	cfg := testLongPollConfig()
	cfg.IdleEvictMs = 1
	b := NewBuffer(cfg, nil)
	go b.Subscribe(context.Background(), "t1", 0, time.Now())
	deadline := time.Now().Add(time.Second)
	for b.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(5 * time.Millisecond)
	b.Sweep()
	if b.TenantCount() != 1 {
		t.Fatalf("tenant with a parked waiter was evicted")
	}
	b.Push("t1", event.Event{Type: "x"})
}

func TestCancelledContextUnparksWaiter(t *testing.T) {
	b := NewBuffer(testLongPollConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Subscribe(ctx, "t1", 0, time.Now())
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for b.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("cancel did not unpark waiter")
	}
	if b.Waiters() != 0 {
		t.Fatalf("cancelled waiter leaked")
	}
}
