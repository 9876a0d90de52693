package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("ok", 20*time.Millisecond)
	c.ObserveRequest("ok", 30*time.Millisecond)
	c.ObserveRequest("invalid_request", time.Millisecond)
	c.ObserveSoftFailure("entity_info")
	c.ObserveSnapshotRPC("n1", "ok")

	if got := testutil.ToFloat64(c.requests.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("invalid_request")); got != 1 {
		t.Fatalf("expected 1 invalid request, got %v", got)
	}
	if got := testutil.ToFloat64(c.softFailures.WithLabelValues("entity_info")); got != 1 {
		t.Fatalf("expected 1 soft failure, got %v", got)
	}
	if got := testutil.CollectAndCount(c.duration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
	if got := testutil.ToFloat64(c.snapshotRPCs.WithLabelValues("n1", "ok")); got != 1 {
		t.Fatalf("expected 1 rpc, got %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRequest("ok", time.Second)
	c.ObserveSoftFailure("job")
	c.ObserveSnapshotRPC("n1", "error")
}
