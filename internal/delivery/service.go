package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/batch"
	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/fanout"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/ledger"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/longpoll"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/tenant"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/id"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

var (
	ErrEmptyChannel = errors.New("delivery: channel name is required")
)

// Service routes producer events to consumers. One per process.
type Service struct {
	cfg    cfgpkg.Config
	logger logpkg.Logger
	db     *pebblestore.DB

	cursors  *ledger.Registry
	pool     *fanout.Registry
	batcher  *batch.Batcher
	fallback *longpoll.Buffer
	ids      *id.Generator
}

func NewService(cfg cfgpkg.Config, db *pebblestore.DB, cursors *ledger.Registry, pool *fanout.Registry, fallback *longpoll.Buffer, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("delivery"))
	}
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		cursors:  cursors,
		pool:     pool,
		fallback: fallback,
		ids:      id.NewGenerator(),
	}
	s.batcher = batch.NewBatcher(cfg.Batch, s.flushBatch, logger)
	return s
}

// pollKey scopes the fallback buffer per business domain, mirroring the
// one-buffer-per-domain legacy layout.
func pollKey(tenantID, channel string) string { return tenantID + "/" + channel }

// Publish stamps the event with a sequence number, records it in the ledger,
// and hands it to the batching window for its (tenant, channel) cursor. The
// returned sequence is the event's position in the channel.
func (s *Service) Publish(ctx context.Context, channel string, ev event.Event) (uint64, error) {
	if channel == "" {
		return 0, ErrEmptyChannel
	}
	if err := ev.Validate(); err != nil {
		return 0, err
	}
	if ev.ID == "" {
		ev.ID = s.ids.Next().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if _, err := tenant.Ensure(s.db, ev.TenantID); err != nil {
		return 0, fmt.Errorf("delivery: ensure tenant %s: %w", ev.TenantID, err)
	}
	log, err := s.cursors.Open(ev.TenantID, channel)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}
	seq, err := log.Append(ctx, payload)
	if err != nil {
		return 0, err
	}

	s.batcher.Add(ev.TenantID, channel, ev, seq)
	s.fallback.Push(pollKey(ev.TenantID, channel), ev)
	return seq, nil
}

// flushBatch is the batcher's flush callback: conflate for tenants inside
// the rollout, compress oversized payloads, and broadcast.
func (s *Service) flushBatch(tenantID, channel string, events []event.Event, seq uint64) {
	out := events
	info := event.BatchInfo{In: len(events), Out: len(events)}
	if batch.ConflationEnabled(tenantID, s.cfg.Batch.ConflationPercent) {
		res := batch.Conflate(events)
		out = res.Events
		info = event.BatchInfo{In: res.In, Out: res.Out}
		metrics.RecordConflation(res.In, res.Out, res.BytesIn, res.BytesOut)
	}

	env := event.NewBatchMsg(channel, seq, out, info)
	data, compressed, err := batch.CompressIfLarge(out, s.cfg.Batch.CompressThresholdBytes)
	if err != nil {
		s.logger.Warn("batch compression failed, sending uncompressed",
			logpkg.Str("tenant", tenantID), logpkg.Str("channel", channel), logpkg.Err(err))
	} else if compressed {
		env.Events = nil
		env.Compressed = true
		env.Data = data
	}
	metrics.RecordBatchFlush(compressed)

	reached := s.pool.Broadcast(tenantID, channel, out, env)
	s.logger.Debug("batch flushed",
		logpkg.Str("tenant", tenantID), logpkg.Str("channel", channel),
		logpkg.Uint64("seq", seq), logpkg.Int("in", info.In), logpkg.Int("out", info.Out),
		logpkg.Int("reached", reached))
}

// Invalidate tells the tenant's matching connections to refetch the cache
// keys derived from the event.
func (s *Service) Invalidate(tenantID, channel string, ev event.Event) int {
	env := event.NewInvalidate(event.InvalidationKeys(channel, ev))
	return s.pool.Broadcast(tenantID, channel, []event.Event{ev}, env)
}

// HasSubscribers lets producers skip expensive payload assembly for channels
// nobody watches.
func (s *Service) HasSubscribers(tenantID, channel string) bool {
	return s.pool.HasSubscribers(tenantID, channel)
}

// Poll serves the long-poll fallback: buffered events newer than since, or a
// bounded wait for the next matching push.
func (s *Service) Poll(ctx context.Context, tenantID, channel string, scope int64, since time.Time) ([]event.Event, time.Time, error) {
	if channel == "" {
		return nil, time.Time{}, ErrEmptyChannel
	}
	events, watermark := s.fallback.Subscribe(ctx, pollKey(tenantID, channel), scope, since)
	return events, watermark, nil
}

// SweepBatchWindows drops remembered adaptive-window state for cursors the
// ledger arena has already evicted, so dead cursors do not pin window memory.
func (s *Service) SweepBatchWindows() {
	s.batcher.EvictIdle(func(key string) bool {
		tenantID, channel, ok := strings.Cut(key, "/")
		if !ok {
			return false
		}
		return s.cursors.Live(tenantID, channel)
	})
}

// RunSweep drives SweepBatchWindows on the retention sweep interval until ctx
// is cancelled.
func (s *Service) RunSweep(ctx context.Context) {
	interval := time.Duration(s.cfg.Retention.SweepIntervalMs) * time.Millisecond
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
			s.SweepBatchWindows()
		}
	}
}

// Stats is the read-only snapshot served at the stats endpoint.
type Stats struct {
	Pool            fanout.Stats `json:"pool"`
	Cursors         int          `json:"cursors"`
	PendingBatches  int          `json:"pendingBatches"`
	LongPollWaiters int          `json:"longPollWaiters"`
	LongPollTenants int          `json:"longPollTenants"`
}

func (s *Service) Stats() Stats {
	return Stats{
		Pool:            s.pool.Stats(),
		Cursors:         s.cursors.CursorCount(),
		PendingBatches:  s.batcher.PendingCursors(),
		LongPollWaiters: s.fallback.Waiters(),
		LongPollTenants: s.fallback.TenantCount(),
	}
}

// Close drains pending batches and tears down every connection.
func (s *Service) Close() {
	s.batcher.FlushAll()
	s.pool.CloseAll()
}
