// Package fanout tracks live consumer connections and delivers flushed
// batches to every matching connection. The registry shards tenants across
// independent locks, counts per-channel subscriber references so producers
// can skip channels nobody watches, and bounds each connection by an
// outstanding-send budget with slow-consumer quarantine.
package fanout
