package fanout

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
)

// SendFunc writes one envelope to the consumer's transport. It must be safe
// to call from the connection's writer goroutine only.
type SendFunc func(event.Envelope) error

// EvictFunc is called at most once when the connection is torn down by the
// delivery path (send failure or quarantine). It runs on the writer goroutine
// and should close the transport and unregister the connection.
type EvictFunc func(c *Connection, reason string)

// ConnectionOptions describes one consumer session at handshake time.
type ConnectionOptions struct {
	ID       string
	Tenant   string
	Actor    string
	Label    string
	Channels []string
	// PropertyFilter restricts delivery to events scoped to one property.
	// Zero means no restriction.
	PropertyFilter int64
	// Filter is an optional CEL expression evaluated per event.
	Filter string
	// MaxOutstanding caps undelivered envelopes held for this connection.
	MaxOutstanding int
	// QuarantineAfter forces teardown after this many consecutive drops.
	QuarantineAfter int
	Send            SendFunc
	OnEvict         EvictFunc
}

var errNoSend = errors.New("fanout: connection requires a send function")

// Connection is one live consumer session. Owned by the Registry between
// Register and Unregister; torn down at most once.
type Connection struct {
	id             string
	tenant         string
	actor          string
	label          string
	channels       map[string]struct{}
	propertyFilter int64
	filter         entityFilter
	send           SendFunc
	onEvict        EvictFunc

	createdAt  time.Time
	lastActive atomic.Int64

	maxOutstanding  int32
	quarantineAfter int32
	outstanding     atomic.Int32
	overloads       atomic.Int32

	closed atomic.Bool
	stop   chan struct{}
	sendCh chan event.Envelope

	// gateMu orders gate-queue appends against the gate release so replayed
	// history always precedes live traffic.
	gateMu sync.Mutex
	gating bool
	gateQ  []event.Envelope
}

func NewConnection(opts ConnectionOptions) (*Connection, error) {
	if opts.Send == nil {
		return nil, errNoSend
	}
	filter, err := newEntityFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	chans := make(map[string]struct{}, len(opts.Channels))
	for _, ch := range opts.Channels {
		chans[ch] = struct{}{}
	}
	maxOut := int32(opts.MaxOutstanding)
	if maxOut <= 0 {
		maxOut = 64
	}
	quarantine := int32(opts.QuarantineAfter)
	if quarantine <= 0 {
		quarantine = 3
	}
	c := &Connection{
		id:              opts.ID,
		tenant:          opts.Tenant,
		actor:           opts.Actor,
		label:           opts.Label,
		channels:        chans,
		propertyFilter:  opts.PropertyFilter,
		filter:          filter,
		send:            opts.Send,
		onEvict:         opts.OnEvict,
		createdAt:       time.Now(),
		maxOutstanding:  maxOut,
		quarantineAfter: quarantine,
		stop:            make(chan struct{}),
		sendCh:          make(chan event.Envelope, maxOut),
	}
	c.touch()
	return c, nil
}

func (c *Connection) ID() string       { return c.id }
func (c *Connection) Tenant() string   { return c.tenant }
func (c *Connection) Actor() string    { return c.actor }
func (c *Connection) Label() string    { return c.label }
func (c *Connection) Outstanding() int { return int(c.outstanding.Load()) }
func (c *Connection) Closed() bool     { return c.closed.Load() }

// Channels returns the subscribed channel names.
func (c *Connection) Channels() []string {
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

func (c *Connection) Subscribed(channel string) bool {
	_, ok := c.channels[channel]
	return ok
}

func (c *Connection) touch() { c.lastActive.Store(time.Now().UnixMilli()) }

// LastActiveMs reports the last successful write, unix milliseconds.
func (c *Connection) LastActiveMs() int64 { return c.lastActive.Load() }

// MatchEvents narrows a batch to the events this connection should see.
// The input slice is returned unchanged when no filter applies.
func (c *Connection) MatchEvents(events []event.Event) []event.Event {
	if c.propertyFilter == 0 && !c.filter.enabled {
		return events
	}
	out := events[:0:0]
	for _, ev := range events {
		if c.propertyFilter != 0 && ev.PropertyID != 0 && ev.PropertyID != c.propertyFilter {
			continue
		}
		if !c.filter.Eval(ev) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// HoldLive gates live delivery. Envelopes arriving before ReleaseGate queue
// up instead of reaching the transport, so a replay in progress is never
// interleaved with live traffic.
func (c *Connection) HoldLive() {
	c.gateMu.Lock()
	c.gating = true
	c.gateMu.Unlock()
}

// SendDirect writes one envelope bypassing the live queue. Only the session
// goroutine may call it, and only while the gate is held.
func (c *Connection) SendDirect(env event.Envelope) error {
	if c.closed.Load() {
		return errors.New("fanout: connection closed")
	}
	if err := c.send(env); err != nil {
		return err
	}
	c.touch()
	return nil
}

// ReleaseGate opens live delivery, first flushing gated envelopes while
// dropping any already covered by the per-channel replay watermarks.
func (c *Connection) ReleaseGate(replayed map[string]uint64) {
	c.gateMu.Lock()
	defer c.gateMu.Unlock()
	c.gating = false
	for _, env := range c.gateQ {
		if env.Seq != 0 && env.Seq <= replayed[env.Channel] {
			c.outstanding.Add(-1)
			continue
		}
		c.sendCh <- env
	}
	c.gateQ = nil
}

// Done closes when the connection is torn down.
func (c *Connection) Done() <-chan struct{} { return c.stop }

// Deliver hands one envelope to the connection's writer, enforcing the
// outstanding budget. A full budget drops the envelope and counts toward
// quarantine; a successful hand-off resets the overload streak.
func (c *Connection) Deliver(env event.Envelope) bool {
	if c.closed.Load() {
		return false
	}
	for {
		cur := c.outstanding.Load()
		if cur >= c.maxOutstanding {
			metrics.IncDropped()
			if c.overloads.Add(1) >= c.quarantineAfter {
				metrics.IncQuarantined()
				c.evict("slow consumer quarantined")
			}
			return false
		}
		if c.outstanding.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	c.overloads.Store(0)

	c.gateMu.Lock()
	if c.gating {
		c.gateQ = append(c.gateQ, env)
		c.gateMu.Unlock()
		return true
	}
	c.gateMu.Unlock()

	select {
	case c.sendCh <- env:
		return true
	default:
		// Budget slots and channel capacity match, so this only races a
		// concurrent close.
		c.outstanding.Add(-1)
		return false
	}
}

// writeLoop drains the send queue in order. One per connection, started on
// registration, exits on stop or send failure.
func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.stop:
			return
		case env := <-c.sendCh:
			err := c.send(env)
			c.outstanding.Add(-1)
			if err != nil {
				c.evict("send failed")
				return
			}
			c.touch()
		}
	}
}

// evict tears the connection down once and notifies the owner.
func (c *Connection) evict(reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.stop)
	if c.onEvict != nil {
		c.onEvict(c, reason)
	}
}

// shutdown stops the writer without invoking the evict callback. Used by
// Unregister, where the caller is already tearing the session down.
func (c *Connection) shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.stop)
}
