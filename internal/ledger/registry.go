package ledger

import (
	"context"
	"sync"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// Registry is the cursor arena: it owns the open per-(tenant, channel) Logs,
// tracks last access, and bounds memory via an idle-eviction sweep. All
// mutation of the arena goes through the registry's lock; each Log still has
// its own mutex for appends, so two tenants never contend.
type Registry struct {
	db     *pebblestore.DB
	cfg    cfgpkg.RetentionConfig
	logger logpkg.Logger

	mu      sync.Mutex
	cursors map[string]*cursorState
}

type cursorState struct {
	log        *Log
	lastAccess time.Time
}

func cursorKey(tenant, channel string) string { return tenant + "|" + channel }

// NewRegistry builds an empty arena.
func NewRegistry(db *pebblestore.DB, cfg cfgpkg.RetentionConfig, logger logpkg.Logger) *Registry {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("ledger"))
	}
	return &Registry{db: db, cfg: cfg, logger: logger, cursors: map[string]*cursorState{}}
}

// Open returns the Log for (tenant, channel), creating it on first use and
// refreshing its last-access time.
func (r *Registry) Open(tenant, channel string) (*Log, error) {
	key := cursorKey(tenant, channel)
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.cursors[key]; ok {
		st.lastAccess = time.Now()
		return st.log, nil
	}
	l, err := openLog(r.db, tenant, channel)
	if err != nil {
		return nil, err
	}
	r.cursors[key] = &cursorState{log: l, lastAccess: time.Now()}
	return l, nil
}

// CursorCount returns the number of live cursors in the arena.
func (r *Registry) CursorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cursors)
}

// Live reports whether (tenant, channel) currently holds an open cursor.
// Does not refresh last access.
func (r *Registry) Live(tenant, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cursors[cursorKey(tenant, channel)]
	return ok
}

// Sweep applies retention to every live cursor and evicts cursors idle past
// the configured window. Called periodically, never on the publish path.
func (r *Registry) Sweep(ctx context.Context) {
	now := time.Now()
	idle := time.Duration(r.cfg.CursorIdleMs) * time.Millisecond
	cutoff := now.Add(-time.Duration(r.cfg.AgeMs) * time.Millisecond).UnixMilli()

	r.mu.Lock()
	logs := make([]*Log, 0, len(r.cursors))
	for key, st := range r.cursors {
		if idle > 0 && now.Sub(st.lastAccess) > idle {
			delete(r.cursors, key)
			continue
		}
		logs = append(logs, st.log)
	}
	r.mu.Unlock()

	for _, l := range logs {
		if ctx.Err() != nil {
			return
		}
		aged, err := l.TrimOlderThan(ctx, cutoff, 0)
		if err != nil {
			r.logger.Warn("ledger trim by age failed",
				logpkg.Str("tenant", l.Tenant()), logpkg.Str("channel", l.Channel()), logpkg.Err(err))
			continue
		}
		capped, err := l.TrimToMaxCount(ctx, r.cfg.MaxEntries, 0)
		if err != nil {
			r.logger.Warn("ledger trim by count failed",
				logpkg.Str("tenant", l.Tenant()), logpkg.Str("channel", l.Channel()), logpkg.Err(err))
			continue
		}
		if aged+capped > 0 {
			r.logger.Debug("ledger trimmed",
				logpkg.Str("tenant", l.Tenant()),
				logpkg.Str("channel", l.Channel()),
				logpkg.Int("aged", aged),
				logpkg.Int("capped", capped))
		}
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := time.Duration(r.cfg.SweepIntervalMs) * time.Millisecond
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
			r.Sweep(ctx)
		}
	}
}
