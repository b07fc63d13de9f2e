package batch

import (
	"sync"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// FlushFunc receives one closed batch. seq is the sequence number of the last
// event in the batch and identifies the batch as a whole on the wire.
type FlushFunc func(tenant, channel string, events []event.Event, seq uint64)

type pending struct {
	tenant  string
	channel string
	events  []event.Event
	lastSeq uint64
	timer   *time.Timer
	// gen guards against a timer firing for a batch that was already
	// flushed by the size cap and replaced by a newer one.
	gen uint64
}

// flushJob is one closed batch waiting for its cursor's drainer.
type flushJob struct {
	tenant  string
	channel string
	events  []event.Event
	seq     uint64
}

// Batcher owns the pending batch and adaptive window per (tenant, channel)
// cursor. Closed batches queue per cursor and a single drainer goroutine per
// cursor hands them to the flush callback in close order, so flushes for a
// cursor never reorder even when a callback blocks.
type Batcher struct {
	cfg    cfgpkg.BatchConfig
	flush  FlushFunc
	logger logpkg.Logger

	mu      sync.Mutex
	batches map[string]*pending
	// windows carries each cursor's current adaptive window across flushes.
	windows map[string]int64
	// queues holds closed batches in FIFO order until the cursor's drainer
	// delivers them; a key stays present while a flush is in flight.
	queues   map[string][]flushJob
	draining map[string]bool
	// idle wakes FlushAll when a cursor's queue fully drains.
	idle *sync.Cond
	gen  uint64
}

func NewBatcher(cfg cfgpkg.BatchConfig, flush FlushFunc, logger logpkg.Logger) *Batcher {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("batch"))
	}
	b := &Batcher{
		cfg:      cfg,
		flush:    flush,
		logger:   logger,
		batches:  map[string]*pending{},
		windows:  map[string]int64{},
		queues:   map[string][]flushJob{},
		draining: map[string]bool{},
	}
	b.idle = sync.NewCond(&b.mu)
	return b
}

func cursorKey(tenant, channel string) string { return tenant + "/" + channel }

// Add appends an event to the cursor's pending batch, creating the batch and
// arming its flush timer if none exists. Reaching the size cap closes the
// batch immediately; its flush still goes through the cursor's drainer.
func (b *Batcher) Add(tenant, channel string, ev event.Event, seq uint64) {
	key := cursorKey(tenant, channel)

	b.mu.Lock()
	p := b.batches[key]
	if p == nil {
		b.gen++
		p = &pending{tenant: tenant, channel: channel, gen: b.gen}
		window := b.windowLocked(key)
		gen := p.gen
		p.timer = time.AfterFunc(time.Duration(window)*time.Millisecond, func() {
			b.flushTimer(key, gen)
		})
		b.batches[key] = p
	}
	p.events = append(p.events, ev)
	p.lastSeq = seq

	if b.cfg.MaxSize > 0 && len(p.events) >= b.cfg.MaxSize {
		p.timer.Stop()
		b.closeLocked(key, p)
	}
	b.mu.Unlock()
}

func (b *Batcher) flushTimer(key string, gen uint64) {
	b.mu.Lock()
	p := b.batches[key]
	if p == nil || p.gen != gen {
		b.mu.Unlock()
		return
	}
	b.closeLocked(key, p)
	b.mu.Unlock()
}

// closeLocked removes the batch from the arena, adapts the cursor's window
// from its fill level, and queues it for the cursor's drainer. Callers hold
// b.mu.
func (b *Batcher) closeLocked(key string, p *pending) {
	delete(b.batches, key)
	b.queues[key] = append(b.queues[key], flushJob{p.tenant, p.channel, p.events, p.lastSeq})
	if !b.draining[key] {
		b.draining[key] = true
		go b.drain(key)
	}
	if b.cfg.MaxSize <= 0 {
		return
	}
	window := b.windowLocked(key)
	fill := len(p.events) * 100 / b.cfg.MaxSize
	switch {
	case fill >= 80:
		window *= 2
		if b.cfg.MaxWindowMs > 0 && window > b.cfg.MaxWindowMs {
			window = b.cfg.MaxWindowMs
		}
	case fill <= 10:
		window /= 2
		if window < b.cfg.MinWindowMs {
			window = b.cfg.MinWindowMs
		}
	}
	b.windows[key] = window
}

// drain delivers one cursor's closed batches to the flush callback in close
// order. The cursor's queue key stays present while a flush is in flight so
// FlushAll can wait on it.
func (b *Batcher) drain(key string) {
	for {
		b.mu.Lock()
		q := b.queues[key]
		if len(q) == 0 {
			delete(b.queues, key)
			delete(b.draining, key)
			b.idle.Broadcast()
			b.mu.Unlock()
			return
		}
		job := q[0]
		b.queues[key] = q[1:]
		b.mu.Unlock()
		b.flush(job.tenant, job.channel, job.events, job.seq)
	}
}

func (b *Batcher) windowLocked(key string) int64 {
	if w, ok := b.windows[key]; ok && w > 0 {
		return w
	}
	if b.cfg.WindowMs > 0 {
		return b.cfg.WindowMs
	}
	return 50
}

// Window reports the cursor's current adaptive window in milliseconds.
func (b *Batcher) Window(tenant, channel string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.windowLocked(cursorKey(tenant, channel))
}

// PendingCursors reports how many cursors currently hold an unflushed batch.
func (b *Batcher) PendingCursors() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

// FlushAll closes every pending batch and blocks until the drainers have
// delivered them. Used on shutdown so buffered events still reach connected
// consumers.
func (b *Batcher) FlushAll() {
	b.mu.Lock()
	n := len(b.batches)
	for key, p := range b.batches {
		p.timer.Stop()
		b.closeLocked(key, p)
		delete(b.windows, key)
	}
	for len(b.queues) > 0 {
		b.idle.Wait()
	}
	b.mu.Unlock()
	if n > 0 {
		b.logger.Debug("flushed pending batches", logpkg.Int("cursors", n))
	}
}

// EvictIdle drops the remembered window for cursors not in the keep set.
// Cursors with a pending batch or an undrained flush queue are never evicted.
func (b *Batcher) EvictIdle(keep func(key string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.windows {
		if _, live := b.batches[key]; live {
			continue
		}
		if b.draining[key] {
			continue
		}
		if keep != nil && keep(key) {
			continue
		}
		delete(b.windows, key)
	}
}
