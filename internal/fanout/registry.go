package fanout

import (
	"fmt"
	"hash/fnv"
	"sync"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

const shardCount = 16

// Registry is the fan-out pool. Tenants are sharded across independent locks
// so thousands of tenants never contend on one mutex.
type Registry struct {
	cfg    cfgpkg.FanoutConfig
	logger logpkg.Logger
	shards [shardCount]shard
}

type shard struct {
	mu      sync.RWMutex
	tenants map[string]*tenantSet
}

type tenantSet struct {
	conns map[string]*Connection
	// channelRefs counts subscribers per channel so producers can tell
	// whether anyone is listening at all.
	channelRefs map[string]int
}

func NewRegistry(cfg cfgpkg.FanoutConfig, logger logpkg.Logger) *Registry {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("fanout"))
	}
	r := &Registry{cfg: cfg, logger: logger}
	for i := range r.shards {
		r.shards[i].tenants = map[string]*tenantSet{}
	}
	return r
}

func (r *Registry) shardFor(tenant string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenant))
	return &r.shards[h.Sum32()%shardCount]
}

// ErrTenantLimit rejects registrations past a tenant's connection cap.
type ErrTenantLimit struct {
	Tenant string
	Limit  int
}

func (e ErrTenantLimit) Error() string {
	return fmt.Sprintf("fanout: tenant %s at connection limit %d", e.Tenant, e.Limit)
}

// Register adds the connection to its tenant's set, bumps channel reference
// counts, and starts the connection's writer. maxConns overrides the
// configured per-tenant cap when positive.
func (r *Registry) Register(c *Connection, maxConns int) error {
	if maxConns <= 0 {
		maxConns = r.cfg.MaxConnectionsPerTenant
	}
	s := r.shardFor(c.tenant)
	s.mu.Lock()
	ts := s.tenants[c.tenant]
	if ts == nil {
		ts = &tenantSet{conns: map[string]*Connection{}, channelRefs: map[string]int{}}
		s.tenants[c.tenant] = ts
	}
	if maxConns > 0 && len(ts.conns) >= maxConns {
		s.mu.Unlock()
		return ErrTenantLimit{Tenant: c.tenant, Limit: maxConns}
	}
	ts.conns[c.id] = c
	for ch := range c.channels {
		ts.channelRefs[ch]++
	}
	s.mu.Unlock()

	metrics.IncConnection(c.tenant)
	go c.writeLoop()
	r.logger.Debug("connection registered",
		logpkg.Str("tenant", c.tenant), logpkg.Str("conn", c.id), logpkg.Int("channels", len(c.channels)))
	return nil
}

// Unregister removes the connection and releases its channel references.
// Safe to call more than once; repeated calls are no-ops.
func (r *Registry) Unregister(tenant, id string) bool {
	s := r.shardFor(tenant)
	s.mu.Lock()
	ts := s.tenants[tenant]
	if ts == nil {
		s.mu.Unlock()
		return false
	}
	c, ok := ts.conns[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(ts.conns, id)
	for ch := range c.channels {
		if ts.channelRefs[ch]--; ts.channelRefs[ch] <= 0 {
			delete(ts.channelRefs, ch)
		}
	}
	if len(ts.conns) == 0 {
		delete(s.tenants, tenant)
	}
	s.mu.Unlock()

	c.shutdown()
	metrics.DecConnection(tenant)
	r.logger.Debug("connection unregistered", logpkg.Str("tenant", tenant), logpkg.Str("conn", id))
	return true
}

// HasSubscribers reports whether any live connection for the tenant
// subscribes to the channel.
func (r *Registry) HasSubscribers(tenant, channel string) bool {
	s := r.shardFor(tenant)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts := s.tenants[tenant]
	return ts != nil && ts.channelRefs[channel] > 0
}

// Broadcast delivers one flushed batch to every matching connection for the
// tenant. events is the uncompressed batch content used for per-connection
// filtering; env is the prebuilt wire envelope, shared when a connection
// takes the full batch. Returns the number of connections reached.
func (r *Registry) Broadcast(tenant, channel string, events []event.Event, env event.Envelope) int {
	s := r.shardFor(tenant)
	s.mu.RLock()
	ts := s.tenants[tenant]
	if ts == nil {
		s.mu.RUnlock()
		return 0
	}
	targets := make([]*Connection, 0, len(ts.conns))
	for _, c := range ts.conns {
		if c.Subscribed(channel) {
			targets = append(targets, c)
		}
	}
	s.mu.RUnlock()

	reached := 0
	for _, c := range targets {
		matched := c.MatchEvents(events)
		if len(matched) == 0 {
			continue
		}
		out := env
		if len(matched) != len(events) {
			// Narrowed batches ship uncompressed; the shared payload no
			// longer matches what this connection should see.
			out.Events = matched
			out.Compressed = false
			out.Data = ""
		}
		if c.Deliver(out) {
			metrics.AddDelivered(channel, len(matched))
			reached++
		}
	}
	return reached
}

// TenantStats is the per-tenant breakdown returned by Stats.
type TenantStats struct {
	Connections int            `json:"connections"`
	Channels    map[string]int `json:"channels"`
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Connections int                    `json:"connections"`
	Tenants     map[string]TenantStats `json:"tenants"`
}

func (r *Registry) Stats() Stats {
	out := Stats{Tenants: map[string]TenantStats{}}
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for tenant, ts := range s.tenants {
			refs := make(map[string]int, len(ts.channelRefs))
			for ch, n := range ts.channelRefs {
				refs[ch] = n
			}
			out.Tenants[tenant] = TenantStats{Connections: len(ts.conns), Channels: refs}
			out.Connections += len(ts.conns)
		}
		s.mu.RUnlock()
	}
	return out
}

// CloseAll tears down every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for tenant, ts := range s.tenants {
			for id, c := range ts.conns {
				c.shutdown()
				metrics.DecConnection(tenant)
				delete(ts.conns, id)
			}
			delete(s.tenants, tenant)
		}
		s.mu.Unlock()
	}
}
