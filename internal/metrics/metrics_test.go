package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestHashLookupLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.HashLookup(true)
	m.HashLookup(true)
	m.HashLookup(false)

	if got := counterValue(t, m.hashLookups.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := counterValue(t, m.hashLookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestReconcileOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Reconcile(OutcomePull)
	m.Reconcile(OutcomePush)
	m.Reconcile(OutcomePull)

	if got := counterValue(t, m.reconciles.WithLabelValues(OutcomePull)); got != 2 {
		t.Errorf("pull = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.HashLookup(true)
	m.Digest(time.Millisecond)
	m.MetadataLookup(false)
	m.Reconcile(OutcomeNoop)
	m.Save()
	m.BatchFailure()
	m.SSEClients(2)
	m.SSEDropped()
}

func TestRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	New(reg)
}

func TestSSEGaugeAndDrops(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SSEClients(3)
	m.SSEClients(1)
	m.SSEDropped()

	metric := &dto.Metric{}
	if err := m.sseClients.Write(metric); err != nil {
		t.Fatal(err)
	}
	if got := metric.Gauge.GetValue(); got != 1 {
		t.Errorf("clients = %v, want 1", got)
	}
	if got := counterValue(t, m.sseDropped); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}
