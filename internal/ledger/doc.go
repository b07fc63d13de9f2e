// Package ledger implements the recent-event ledger and sequence allocator
// behind replay-on-reconnect.
//
// Each (tenant, channel) pair owns one Log: an append-only, sequence-stamped
// window of recently delivered events stored in Pebble. Appends assign
// strictly increasing sequence numbers starting at 1; the last sequence is
// persisted alongside the entries so a reopened cursor continues where it
// left off. Retention is two-sided: entries older than the replay window are
// trimmed by age, and each cursor is capped by entry count, oldest first.
//
// The Registry is the cursor arena: it owns the open Logs, tracks last
// access, and evicts idle cursors on a periodic sweep so memory stays bounded
// under many tenants. A replay request against an evicted-then-trimmed cursor
// degrades to an empty replay, never wrong-order delivery.
package ledger
