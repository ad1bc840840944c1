package batchman_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gopkg.in/batchman.v0"
)

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := batchman.NewMetrics(reg)
	obs := m.Observer()
	gen := batchman.NewGenerator()

	b := newSizedBatch(gen, 3, 1)
	obs.OnCreated(b.View())

	if got := testutil.ToFloat64(m.BatchesSubmitted); got != 1 {
		t.Errorf("expected 1 submitted batch, got: %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsSubmitted); got != 2 {
		t.Errorf("expected 2 submitted items, got: %v", got)
	}
	if got := testutil.ToFloat64(m.WaitingItems); got != 2 {
		t.Errorf("expected 2 waiting items, got: %v", got)
	}

	// an idle dispatch must not move the gauges
	obs.OnDispatch(0, nil)
	if got := testutil.ToFloat64(m.WaitingItems); got != 2 {
		t.Errorf("expected the idle dispatch to leave the gauge at 2, got: %v", got)
	}

	s := newTestScheduler(t, 1, 1, nil)
	if err := s.Submit(b); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	it := s.Acquire(0)
	if it == nil {
		t.Fatal("expected an item")
	}
	v := it.View()
	obs.OnDispatch(0, &v)
	if got := testutil.ToFloat64(m.WaitingItems); got != 1 {
		t.Errorf("expected 1 waiting item after dispatch, got: %v", got)
	}

	if err := s.Complete(it); err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	obs.OnCompleted(it.View())
	// acquired directly rather than through a worker, so the label is "-1"
	if got := testutil.ToFloat64(m.ItemsCompleted.WithLabelValues("-1")); got != 1 {
		t.Errorf("expected 1 completion recorded, got: %v", got)
	}
}
