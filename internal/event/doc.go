// Package event defines the domain event record produced by the business
// modules and the server-to-client message envelope used by the delivery
// engine.
//
// A domain event is immutable once published; the engine only attaches
// sequence numbers on the way out. The envelope is a tagged union
// discriminated by its Type field: event, batch, ping, ack, invalidate,
// error.
package event
