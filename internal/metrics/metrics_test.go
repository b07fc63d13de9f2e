package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConnectionGaugeTracksRegistrations(t *testing.T) {
	before := testutil.ToFloat64(connectionsActive)
	IncConnection("t1")
	IncConnection("t1")
	DecConnection("t1")
	after := testutil.ToFloat64(connectionsActive)
	if after-before != 1 {
		t.Fatalf("active gauge delta: %v", after-before)
	}
	if got := testutil.ToFloat64(tenantConnections.WithLabelValues("t1")); got != 1 {
		t.Fatalf("tenant gauge: %v", got)
	}
	DecConnection("t1")
}

func TestConflationBytesSavedNeverNegative(t *testing.T) {
	before := testutil.ToFloat64(conflationBytesSaved)
	RecordConflation(3, 3, 100, 150)
	if got := testutil.ToFloat64(conflationBytesSaved); got != before {
		t.Fatalf("bytes saved moved on a growth pass: %v != %v", got, before)
	}
	RecordConflation(3, 1, 300, 120)
	if got := testutil.ToFloat64(conflationBytesSaved); got != before+180 {
		t.Fatalf("bytes saved: %v", got-before)
	}
}
