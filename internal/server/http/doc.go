// Package httpserver exposes the delivery engine over HTTP: the WebSocket
// stream endpoint, producer publish, the long-poll fallback, stats, health,
// and the Prometheus scrape endpoint.
package httpserver
