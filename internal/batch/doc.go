// Package batch implements the batching and conflation engine. Events for one
// (tenant, channel) cursor collect in a pending batch until an adaptive window
// timer fires or the batch hits its size cap, then flush as a unit. Flushed
// batches may be conflated (last-write-wins per entity) for tenants inside the
// configured rollout and compressed when the serialized payload is large.
package batch
