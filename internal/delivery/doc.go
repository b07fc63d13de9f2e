// Package delivery is the subscription router: the entry point binding
// producer channels to sequencing, the recent-event ledger, and the batching
// engine, and the owner of the consumer session lifecycle from handshake
// through replay, live delivery, keep-alive, and teardown.
package delivery
