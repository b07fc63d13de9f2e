// Package metrics exposes the engine's Prometheus instrumentation: connection
// counts, per-channel delivery, conflation and compression effectiveness, and
// storage latencies. Collectors register on the default registry and are
// served by Handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections_active",
		Help: "Currently registered consumer connections",
	})

	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_connections_total",
		Help: "Connections registered since process start",
	})

	tenantConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "realtime_tenant_connections",
		Help: "Currently registered connections per tenant",
	}, []string{"tenant"})

	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_delivered_total",
		Help: "Events delivered to connections per channel",
	}, []string{"channel"})

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_messages_dropped_total",
		Help: "Messages dropped because a connection hit its outstanding cap",
	})

	connectionsQuarantined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_connections_quarantined_total",
		Help: "Connections force-closed after repeated backpressure drops",
	})

	conflationIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_conflation_events_in_total",
		Help: "Events entering conflation",
	})

	conflationOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_conflation_events_out_total",
		Help: "Events leaving conflation after merging",
	})

	conflationBytesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_conflation_bytes_saved_total",
		Help: "Serialized bytes removed by conflation",
	})

	batchesFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_batches_flushed_total",
		Help: "Batches flushed to the fan-out pool",
	})

	batchesCompressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_batches_compressed_total",
		Help: "Flushed batches shipped compressed",
	})

	longpollWaiters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_longpoll_waiters",
		Help: "Currently parked long-poll waiters",
	})

	storeReadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "realtime_store_read_duration_seconds",
		Help:    "Ledger storage read latency",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	storeCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "realtime_store_commit_duration_seconds",
		Help:    "Ledger storage batch commit latency",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

// Handler serves the scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

func IncConnection(tenant string) {
	connectionsActive.Inc()
	connectionsTotal.Inc()
	tenantConnections.WithLabelValues(tenant).Inc()
}

func DecConnection(tenant string) {
	connectionsActive.Dec()
	tenantConnections.WithLabelValues(tenant).Dec()
}

// AddDelivered records n events delivered on a channel to one connection.
func AddDelivered(channel string, n int) {
	eventsDelivered.WithLabelValues(channel).Add(float64(n))
}

func IncDropped() { messagesDropped.Inc() }

func IncQuarantined() { connectionsQuarantined.Inc() }

// RecordConflation records one conflation pass.
func RecordConflation(in, out, bytesIn, bytesOut int) {
	conflationIn.Add(float64(in))
	conflationOut.Add(float64(out))
	if bytesIn > bytesOut {
		conflationBytesSaved.Add(float64(bytesIn - bytesOut))
	}
}

// RecordBatchFlush records one flushed batch and whether it shipped compressed.
func RecordBatchFlush(compressed bool) {
	batchesFlushed.Inc()
	if compressed {
		batchesCompressed.Inc()
	}
}

func IncLongPollWaiters() { longpollWaiters.Inc() }
func DecLongPollWaiters() { longpollWaiters.Dec() }

// StoreHook adapts the collectors to the storage layer's metrics interface.
type StoreHook struct{}

func (StoreHook) ObserveRead(elapsed time.Duration, bytes int) {
	storeReadDuration.Observe(elapsed.Seconds())
}

func (StoreHook) ObserveBatchCommit(elapsed time.Duration, bytes int) {
	storeCommitDuration.Observe(elapsed.Seconds())
}
