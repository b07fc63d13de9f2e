package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/fanout"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/tenant"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// Handshake is the first client frame on a stream connection.
type Handshake struct {
	Channels        []string `json:"channels"`
	ProtocolVersion int      `json:"protocolVersion"`
	PropertyFilter  int64    `json:"propertyFilter,omitempty"`
	// Filter is an optional CEL expression evaluated per delivered event.
	Filter  string `json:"filter,omitempty"`
	LastSeq uint64 `json:"lastSeq,omitempty"`
	Label   string `json:"label,omitempty"`
	// AuthToken is accepted for forward compatibility; verification happens
	// upstream of this process.
	AuthToken string `json:"authToken,omitempty"`
}

// Wire error codes.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeResourceExhausted = "resource_exhausted"
	CodeInternal          = "internal"
)

var (
	ErrNoChannels  = errors.New("delivery: handshake requests no channels")
	ErrBadProtocol = errors.New("delivery: unsupported protocol version")
)

// StreamSink is implemented by transports carrying one consumer session.
type StreamSink interface {
	Send(event.Envelope) error
	Context() context.Context
}

// Session states. Closing exists for the window between a teardown trigger
// and the registry release; Closed is terminal.
const (
	stateConnecting int32 = iota
	stateActive
	stateClosing
	stateClosed
)

type session struct {
	id     string
	tenant string
	actor  string
	state  atomic.Int32
}

func (s *session) transition(to int32) { s.state.Store(to) }

func (s *Service) validateHandshake(h Handshake) error {
	if len(h.Channels) == 0 {
		return ErrNoChannels
	}
	for _, ch := range h.Channels {
		if ch == "" {
			return ErrNoChannels
		}
	}
	if h.ProtocolVersion != s.cfg.ProtocolVersion {
		return fmt.Errorf("%w: %d", ErrBadProtocol, h.ProtocolVersion)
	}
	return nil
}

// ServeStream runs one consumer session to completion: validate the
// handshake, register, replay missed history, then pump keep-alives until
// the consumer goes away. The returned error reflects handshake rejection
// only; a live session that ends returns nil.
func (s *Service) ServeStream(ctx context.Context, tenantID, actorID string, h Handshake, sink StreamSink) error {
	sess := &session{id: s.ids.Next().String(), tenant: tenantID, actor: actorID}
	logger := s.logger.With(logpkg.Str("session", sess.id), logpkg.Str("tenant", tenantID))

	if err := s.validateHandshake(h); err != nil {
		_ = sink.Send(event.NewError("", err.Error(), CodeInvalidArgument, 0))
		sess.transition(stateClosed)
		return err
	}

	meta, err := tenant.Ensure(s.db, tenantID)
	if err != nil {
		_ = sink.Send(event.NewError("", "tenant unavailable", CodeInternal, 0))
		sess.transition(stateClosed)
		return err
	}

	conn, err := fanout.NewConnection(fanout.ConnectionOptions{
		ID:              sess.id,
		Tenant:          tenantID,
		Actor:           actorID,
		Label:           h.Label,
		Channels:        h.Channels,
		PropertyFilter:  h.PropertyFilter,
		Filter:          h.Filter,
		MaxOutstanding:  s.cfg.Fanout.MaxOutstanding,
		QuarantineAfter: s.cfg.Fanout.QuarantineAfter,
		Send:            sink.Send,
		OnEvict: func(c *fanout.Connection, reason string) {
			logger.Warn("connection evicted", logpkg.Str("reason", reason))
			s.pool.Unregister(c.Tenant(), c.ID())
		},
	})
	if err != nil {
		_ = sink.Send(event.NewError("", err.Error(), CodeInvalidArgument, 0))
		sess.transition(stateClosed)
		return err
	}

	// Hold live traffic until the replay below has fully drained.
	conn.HoldLive()
	if err := s.pool.Register(conn, meta.MaxConnections); err != nil {
		_ = sink.Send(event.NewError("", err.Error(), CodeResourceExhausted, 0))
		sess.transition(stateClosed)
		return err
	}
	sess.transition(stateActive)

	if err := conn.SendDirect(event.NewAck()); err != nil {
		s.teardown(sess, conn, logger, "ack send failed")
		return nil
	}

	replayed, err := s.replay(conn, h)
	if err != nil {
		s.teardown(sess, conn, logger, "replay failed")
		return nil
	}
	conn.ReleaseGate(replayed)
	logger.Info("session active",
		logpkg.Int("channels", len(h.Channels)), logpkg.Uint64("lastSeq", h.LastSeq))

	pingInterval := time.Duration(s.cfg.Session.PingIntervalMs) * time.Millisecond
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.teardown(sess, conn, logger, "client disconnected")
			return nil
		case <-sink.Context().Done():
			s.teardown(sess, conn, logger, "transport closed")
			return nil
		case <-conn.Done():
			sess.transition(stateClosed)
			return nil
		case <-ticker.C:
			// A full budget drops the ping; the next one rides on a
			// drained queue or the connection is quarantined by then.
			conn.Deliver(event.NewPing())
		}
	}
}

// replay streams missed history for every subscribed channel, oldest first,
// and reports the per-channel watermark reached. A stale or reclaimed cursor
// replays nothing rather than failing the session.
func (s *Service) replay(conn *fanout.Connection, h Handshake) (map[string]uint64, error) {
	replayed := make(map[string]uint64, len(h.Channels))
	if h.LastSeq == 0 {
		return replayed, nil
	}
	for _, channel := range h.Channels {
		log, err := s.cursors.Open(conn.Tenant(), channel)
		if err != nil {
			return nil, err
		}
		entries, err := log.Since(h.LastSeq, s.cfg.Retention.MaxEntries)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			var ev event.Event
			if err := json.Unmarshal(e.Payload, &ev); err != nil {
				// Skip undecodable history instead of poisoning the session.
				continue
			}
			if matched := conn.MatchEvents([]event.Event{ev}); len(matched) > 0 {
				if err := conn.SendDirect(event.NewEventMsg(channel, e.Seq, matched)); err != nil {
					return nil, err
				}
			}
			replayed[channel] = e.Seq
		}
		if replayed[channel] < h.LastSeq {
			replayed[channel] = h.LastSeq
		}
	}
	return replayed, nil
}

// teardown releases the session's registry entry. Safe to reach from
// multiple exit paths; the registry ignores repeats.
func (s *Service) teardown(sess *session, conn *fanout.Connection, logger logpkg.Logger, reason string) {
	sess.transition(stateClosing)
	s.pool.Unregister(sess.tenant, sess.id)
	sess.transition(stateClosed)
	logger.Info("session closed", logpkg.Str("reason", reason))
}
