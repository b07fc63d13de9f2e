package event

import "time"

// MsgType discriminates the server-to-client envelope.
type MsgType string

const (
	MsgEvent      MsgType = "event"
	MsgBatch      MsgType = "batch"
	MsgPing       MsgType = "ping"
	MsgAck        MsgType = "ack"
	MsgInvalidate MsgType = "invalidate"
	MsgError      MsgType = "error"
)

// BatchInfo is the per-batch breakdown carried on batch envelopes.
type BatchInfo struct {
	// In is the number of raw events that entered the batch window.
	In int `json:"in"`
	// Out is the number of records after conflation.
	Out int `json:"out"`
}

// Envelope is the wire message sent to consumers, discriminated by Type.
type Envelope struct {
	Type    MsgType `json:"type"`
	Channel string  `json:"channel,omitempty"`
	Events  []Event `json:"events,omitempty"`
	// Timestamp is ISO-8601.
	Timestamp string `json:"timestamp"`
	// Seq is 0 for ping and ack.
	Seq uint64 `json:"seq"`

	// Batch-only fields.
	Messages   *BatchInfo `json:"messages,omitempty"`
	Compressed bool       `json:"compressed,omitempty"`
	// Data carries the base64-encoded compressed events payload when
	// Compressed is set; Events is empty in that case.
	Data string `json:"data,omitempty"`

	// Invalidate-only.
	Keys []string `json:"keys,omitempty"`

	// Error-only.
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// NewEventMsg builds a single-or-multi event envelope for one channel.
func NewEventMsg(channel string, seq uint64, events []Event) Envelope {
	return Envelope{Type: MsgEvent, Channel: channel, Events: events, Timestamp: now(), Seq: seq}
}

// NewBatchMsg builds a batch envelope with its conflation breakdown.
func NewBatchMsg(channel string, seq uint64, events []Event, info BatchInfo) Envelope {
	return Envelope{Type: MsgBatch, Channel: channel, Events: events, Timestamp: now(), Seq: seq, Messages: &info}
}

// NewPing builds a keep-alive envelope.
func NewPing() Envelope {
	return Envelope{Type: MsgPing, Timestamp: now()}
}

// NewAck builds the handshake acknowledgment.
func NewAck() Envelope {
	return Envelope{Type: MsgAck, Timestamp: now()}
}

// NewInvalidate builds a cache-invalidation envelope.
func NewInvalidate(keys []string) Envelope {
	return Envelope{Type: MsgInvalidate, Keys: keys, Timestamp: now()}
}

// NewError builds an error envelope. channel may be empty.
func NewError(channel, message, code string, seq uint64) Envelope {
	return Envelope{Type: MsgError, Channel: channel, Message: message, Code: code, Timestamp: now(), Seq: seq}
}
