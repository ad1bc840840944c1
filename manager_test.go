package batchman_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gopkg.in/batchman.v0"
)

func managerConfig() batchman.Config {
	return batchman.Config{
		WorkerCount:      3,
		ProducerInterval: 25 * time.Millisecond,
		BatchCountMin:    1,
		BatchCountMax:    5,
		ItemSizeMin:      1,
		ItemSizeMax:      5,
		CostM:            1,
		CostK:            1,
		UnitTime:         time.Millisecond,
		AcquirePoll:      20 * time.Millisecond,
		StopGrace:        100 * time.Millisecond,
		JoinTimeout:      2 * time.Second,
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	cfg := managerConfig()
	cfg.WorkerCount = 0
	if _, err := batchman.NewManager("bad", cfg); err != batchman.ErrInvalidWorkerCount {
		t.Errorf("expected error: %v, got: %v", batchman.ErrInvalidWorkerCount, err)
	}

	m, err := batchman.NewManager("good", managerConfig())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if m.GetName() != "good" {
		t.Errorf("expected manager name: %s, got: %s", "good", m.GetName())
	}
	if m.GetScheduler() == nil {
		t.Error("expected an owned scheduler")
	}
}

func TestManagerManualModeEndToEnd(t *testing.T) {
	rec := &recorder{}
	m, err := batchman.NewManager("manual", managerConfig(),
		batchman.WithManualMode(), batchman.WithObserver(rec))
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	m.Start()
	m.Start() // second call is a no-op

	// ten batches of 1-5 items, the conservation scenario
	submitted := 0
	for i := 0; i < 10; i++ {
		b, err := m.InjectBatch(1 + i%5)
		if err != nil {
			t.Fatalf("unexpected injection error: %v", err)
		}
		submitted += b.Len()
	}

	waitFor(t, 10*time.Second, func() bool {
		st := m.GetStat()
		return st.Scheduler.CompletedItems == int64(submitted) && st.Scheduler.ActiveBatches == 0
	}, "all injected items should drain")

	if abandoned := m.Stop(); len(abandoned) != 0 {
		t.Errorf("expected a clean stop, abandoned workers: %v", abandoned)
	}

	// conservation: every completion is distinct and total matches
	ids := rec.completedIDs()
	if len(ids) != submitted {
		t.Errorf("expected %d completions, got: %d", submitted, len(ids))
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Errorf("item %d completed twice", id)
		}
		seen[id] = true
	}

	st := m.GetStat()
	if st.Scheduler.SubmittedItems != int64(submitted) {
		t.Errorf("expected %d submitted items, got: %d", submitted, st.Scheduler.SubmittedItems)
	}
	if st.Scheduler.WaitingItems != 0 {
		t.Errorf("expected no waiting items after draining, got: %d", st.Scheduler.WaitingItems)
	}
}

func TestManagerAutomaticModeStops(t *testing.T) {
	m, err := batchman.NewManager("auto", managerConfig())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	m.Start()
	waitFor(t, 5*time.Second, func() bool {
		return m.GetStat().Scheduler.CompletedItems >= 3
	}, "the automatic producer should feed the workers")

	cfg := managerConfig()
	start := time.Now()
	abandoned := m.Stop()
	elapsed := time.Since(start)

	if len(abandoned) != 0 {
		t.Errorf("expected a clean stop, abandoned workers: %v", abandoned)
	}
	// Stop is bounded by grace period + join timeout (plus scheduling slack)
	if elapsed > cfg.StopGrace+cfg.JoinTimeout+time.Second {
		t.Errorf("expected Stop within %v, took %v", cfg.StopGrace+cfg.JoinTimeout, elapsed)
	}

	st := m.GetStat()
	if st.Scheduler.CompletedItems > st.Scheduler.SubmittedItems {
		t.Errorf("completed %d exceeds submitted %d", st.Scheduler.CompletedItems, st.Scheduler.SubmittedItems)
	}

	// repeated Stop is a reported no-op
	if again := m.Stop(); again != nil {
		t.Errorf("expected nil from a second Stop, got: %v", again)
	}
}

// stampingObserver records whether any dispatch fires after a marker is set.
type stampingObserver struct {
	mu      sync.Mutex
	sealed  bool
	late    int
	batchman.NopObserver
}

func (o *stampingObserver) seal() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sealed = true
}

func (o *stampingObserver) lateCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.late
}

func (o *stampingObserver) OnDispatch(workerID int, item *batchman.ItemView) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sealed && item != nil {
		o.late++
	}
}

func TestNoDispatchAfterStopReturns(t *testing.T) {
	obs := &stampingObserver{}
	m, err := batchman.NewManager("sealed", managerConfig(), batchman.WithObserver(obs))
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	m.Start()
	waitFor(t, 5*time.Second, func() bool {
		return m.GetStat().Scheduler.CompletedItems >= 1
	}, "the system should process at least one item")

	m.Stop()
	obs.seal()

	time.Sleep(200 * time.Millisecond)
	if n := obs.lateCount(); n != 0 {
		t.Errorf("expected no dispatch events after Stop returned, got: %d", n)
	}
}

func TestManagerAsyncEventsFlushOnStop(t *testing.T) {
	rec := &recorder{}
	m, err := batchman.NewManager("async", managerConfig(),
		batchman.WithManualMode(), batchman.WithObserver(rec), batchman.WithAsyncEvents())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	m.Start()
	if _, err := m.InjectBatch(4); err != nil {
		t.Fatalf("unexpected injection error: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return m.GetStat().Scheduler.CompletedItems == 4
	}, "the injected items should drain")
	m.Stop()

	// the async queue is flushed before Stop returns
	_, _, _, completed := rec.counts()
	if completed != 4 {
		t.Errorf("expected 4 completion events delivered by Stop, got: %d", completed)
	}
}

func TestManagerWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := batchman.NewManager("metered", managerConfig(),
		batchman.WithManualMode(), batchman.WithMetrics(reg))
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	if m.GetMetrics() == nil {
		t.Fatal("expected instruments to be registered")
	}

	m.Start()
	if _, err := m.InjectBatch(2); err != nil {
		t.Fatalf("unexpected injection error: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return m.GetStat().Scheduler.CompletedItems == 2
	}, "the injected items should drain")
	m.Stop()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	found := make(map[string]bool, len(families))
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, want := range []string{
		"batchman_batches_submitted_total",
		"batchman_items_submitted_total",
		"batchman_items_completed_total",
		"batchman_waiting_items",
		"batchman_item_wait_seconds",
		"batchman_item_processing_seconds",
	} {
		if !found[want] {
			t.Errorf("expected metric family %s to be gathered", want)
		}
	}
}

func TestManagerInjectBatchDegenerate(t *testing.T) {
	m, err := batchman.NewManager("degen", managerConfig(), batchman.WithManualMode())
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	m.Start()
	defer m.Stop()

	b, err := m.InjectBatch(0)
	if err != nil {
		t.Fatalf("expected a zero count to be legal, got: %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("expected an empty batch, got %d items", b.Len())
	}
	if got := m.Snapshot().TotalWaiting(); got != 0 {
		t.Errorf("expected nothing registered, got %d waiting", got)
	}

	if _, err := m.InjectBatch(-2); err != batchman.ErrInvalidItemCount {
		t.Errorf("expected error: %v, got: %v", batchman.ErrInvalidItemCount, err)
	}
}
