// Package longpoll is the fallback delivery transport: a bounded per-tenant
// event buffer with parked waiters, for clients that cannot hold a stream
// open. It shares the event shape with the streaming path but none of its
// sequencing or replay machinery.
package longpoll

import (
	"context"
	"sync"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

type entry struct {
	ev event.Event
	at time.Time
}

type waiter struct {
	scope int64
	ch    chan []event.Event
}

type tenantBuf struct {
	entries    []entry
	waiters    map[uint64]*waiter
	lastActive time.Time
}

// Buffer is the process-wide long-poll arena, one slot per active tenant.
type Buffer struct {
	cfg    cfgpkg.LongPollConfig
	logger logpkg.Logger

	mu         sync.Mutex
	tenants    map[string]*tenantBuf
	nextWaiter uint64
}

func NewBuffer(cfg cfgpkg.LongPollConfig, logger logpkg.Logger) *Buffer {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("longpoll"))
	}
	return &Buffer{cfg: cfg, logger: logger, tenants: map[string]*tenantBuf{}}
}

func scopeMatches(scope int64, ev event.Event) bool {
	return scope == 0 || ev.PropertyID == 0 || ev.PropertyID == scope
}

// Push appends an event to the tenant's buffer, dropping the oldest entry on
// overflow, then wakes every waiter whose scope matches.
func (b *Buffer) Push(tenant string, ev event.Event) {
	now := time.Now()
	b.mu.Lock()
	tb := b.tenants[tenant]
	if tb == nil {
		tb = &tenantBuf{waiters: map[uint64]*waiter{}}
		b.tenants[tenant] = tb
	}
	tb.lastActive = now
	tb.entries = append(tb.entries, entry{ev: ev, at: now})
	if max := b.cfg.MaxBuffered; max > 0 && len(tb.entries) > max {
		tb.entries = tb.entries[len(tb.entries)-max:]
	}
	var woken []*waiter
	for id, w := range tb.waiters {
		if scopeMatches(w.scope, ev) {
			woken = append(woken, w)
			delete(tb.waiters, id)
		}
	}
	b.mu.Unlock()

	for _, w := range woken {
		w.ch <- []event.Event{ev}
		metrics.DecLongPollWaiters()
	}
}

// Subscribe returns events for the tenant newer than since and matching
// scope. Already-buffered matches return synchronously; otherwise the call
// parks until a matching push or the configured timeout, returning an empty
// slice on timeout. The second return is the watermark for the caller's next
// request.
func (b *Buffer) Subscribe(ctx context.Context, tenant string, scope int64, since time.Time) ([]event.Event, time.Time) {
	b.mu.Lock()
	tb := b.tenants[tenant]
	if tb == nil {
		tb = &tenantBuf{waiters: map[uint64]*waiter{}}
		b.tenants[tenant] = tb
	}
	tb.lastActive = time.Now()

	var buffered []event.Event
	var newest time.Time
	for _, e := range tb.entries {
		if !e.at.After(since) {
			continue
		}
		if !scopeMatches(scope, e.ev) {
			continue
		}
		buffered = append(buffered, e.ev)
		newest = e.at
	}
	if len(buffered) > 0 {
		b.mu.Unlock()
		return buffered, newest
	}

	if max := b.cfg.MaxWaiters; max > 0 && len(tb.waiters) >= max {
		b.mu.Unlock()
		b.logger.Warn("long-poll waiter cap reached", logpkg.Str("tenant", tenant))
		return nil, time.Now()
	}
	w := &waiter{scope: scope, ch: make(chan []event.Event, 1)}
	b.nextWaiter++
	id := b.nextWaiter
	tb.waiters[id] = w
	b.mu.Unlock()
	metrics.IncLongPollWaiters()

	timeout := time.Duration(b.cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case events := <-w.ch:
		return events, time.Now()
	case <-timer.C:
	case <-ctx.Done():
	}

	// Timed out or caller went away: remove the waiter unless a concurrent
	// push already claimed it.
	b.mu.Lock()
	if _, still := tb.waiters[id]; still {
		delete(tb.waiters, id)
		b.mu.Unlock()
		metrics.DecLongPollWaiters()
		return nil, time.Now()
	}
	b.mu.Unlock()
	// The push won the race; its delivery is already in the channel.
	events := <-w.ch
	metrics.DecLongPollWaiters()
	return events, time.Now()
}

// Waiters reports parked waiters across all tenants.
func (b *Buffer) Waiters() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, tb := range b.tenants {
		n += len(tb.waiters)
	}
	return n
}

// TenantCount reports tenants currently holding a buffer.
func (b *Buffer) TenantCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tenants)
}

// Sweep evicts tenants with no waiters and no activity inside the idle
// window.
func (b *Buffer) Sweep() {
	idle := time.Duration(b.cfg.IdleEvictMs) * time.Millisecond
	if idle <= 0 {
		return
	}
	cutoff := time.Now().Add(-idle)
	b.mu.Lock()
	defer b.mu.Unlock()
	for tenant, tb := range b.tenants {
		if len(tb.waiters) == 0 && tb.lastActive.Before(cutoff) {
			delete(b.tenants, tenant)
		}
	}
}

// Run drives the idle sweep until ctx is cancelled.
func (b *Buffer) Run(ctx context.Context) {
	interval := time.Duration(b.cfg.SweepIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Sweep()
		}
	}
}
