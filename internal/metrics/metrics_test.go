package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"orderflow-engine/internal/model"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := <-ch
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if pb.Counter == nil {
		t.Fatalf("expected a counter metric")
	}
	return pb.Counter.GetValue()
}

func TestNilRegistryMethodsAreNoops(t *testing.T) {
	var r *Registry
	r.IncMalformedTrade()
	r.IncSignalEmitted(model.SignalDeltaFlip)
	r.IncDispatchDrop()
	r.IncPersistenceDrop()
}

func TestNoopRegistryMethodsAreNoops(t *testing.T) {
	r := NewNoop()
	r.IncMalformedTrade()
	r.IncSignalEmitted(model.SignalDeltaFlip)
	r.IncDispatchDrop()
	r.IncPersistenceDrop()
}

func TestRegistryIncrementsAgainstIsolatedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.IncDispatchDrop()
	r.IncDispatchDrop()

	if v := counterValue(t, r.dispatchDrops); v != 2 {
		t.Fatalf("expected dispatch drops counter = 2, got %v", v)
	}
}

func TestSignalsEmittedLabelsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.IncSignalEmitted(model.SignalAbsorption)

	v := counterValue(t, r.signalsEmitted.WithLabelValues("absorption"))
	if v != 1 {
		t.Fatalf("expected absorption label incremented once, got %v", v)
	}
}
