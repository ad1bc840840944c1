package batchman

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Scheduler is the shared store of active batches. One mutex guards the
// collection; a one-slot notify channel plays the condition variable, with
// every Acquire re-checking its predicate after waking so spurious wakeups are
// harmless. No other state is shared between producers and workers.
type Scheduler struct {
	// basic
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	lg     *zap.SugaredLogger
	m, k   float64
	// core
	batches   []*Batch
	notify    chan struct{}
	obs       Observer
	closeOnce sync.Once
	// counters
	cntBatches   atomic.Int64
	cntItems     atomic.Int64
	cntAcquired  atomic.Int64
	cntCompleted atomic.Int64
	cntDrained   atomic.Int64
}

// NewScheduler creates a scheduler using the cost coefficients m and k. A nil
// observer defaults to NopObserver. Coefficients are validated here and never
// mid-run.
func NewScheduler(m, k float64, obs Observer) (*Scheduler, error) {
	if m <= 0 {
		return nil, ErrInvalidCostM
	}
	if k < 0 {
		return nil, ErrInvalidCostK
	}
	if obs == nil {
		obs = NopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		lg:     log.With("component", "scheduler"),
		m:      m,
		k:      k,
		notify: make(chan struct{}, 1),
		obs:    obs,
	}
	s.lg.Debugw("new scheduler created", "m", m, "k", k)
	return s, nil
}

func (s *Scheduler) String() string {
	s.mu.Lock()
	active := len(s.batches)
	s.mu.Unlock()
	return fmt.Sprintf(emojiSched+"Scheduler(Active:%d,Acquired:%d,Completed:%d)",
		active, s.cntAcquired.Load(), s.cntCompleted.Load())
}

// Submit registers a batch as active and wakes one waiting worker. An empty
// batch is rejected with ErrBatchEmpty and never becomes a candidate. Safe to
// call concurrently with Acquire and Complete from any goroutine.
func (s *Scheduler) Submit(b *Batch) error {
	if b == nil {
		return ErrBatchNil
	}
	if b.Len() == 0 {
		s.lg.Debugw("empty batch dropped", "batch_id", b.ID())
		return ErrBatchEmpty
	}

	s.mu.Lock()
	s.batches = append(s.batches, b)
	// the view must be taken under the lock: a concurrent Acquire may
	// already be stamping starts on this batch
	v := b.View()
	s.mu.Unlock()

	s.cntBatches.Inc()
	s.cntItems.Add(int64(b.Len()))
	s.signal()
	s.lg.Debugw("batch submitted", "batch_id", b.ID(), "items", b.Len(), "sizes", b.Sizes())

	// observers run outside the lock
	s.obs.OnCreated(v)
	return nil
}

// Acquire returns the eligible head item with the lowest cost, stamped started
// and exclusively owned by the caller until Complete. When nothing is eligible
// it waits up to timeout for a submission, then returns nil; the nil result is
// the normal idle outcome, not an error. A non-positive timeout checks once
// without waiting. After Close, Acquire returns nil promptly.
func (s *Scheduler) Acquire(timeout time.Duration) *Item {
	deadline := time.Now().Add(timeout)
	for {
		if s.ctx.Err() != nil {
			return nil
		}

		s.mu.Lock()
		it := s.selectLocked()
		if it != nil && s.hasHeadLocked() {
			// the next head became eligible the moment this one started;
			// chain the wakeup so other idle waiters need not poll it out
			s.signal()
		}
		s.mu.Unlock()
		if it != nil {
			s.cntAcquired.Inc()
			s.lg.Debugw("item acquired", "item_id", it.ID(), "batch_id", it.BatchID(),
				"size", it.Size(), "waited", it.WaitingTime())
			return it
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.notify:
			timer.Stop()
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// selectLocked picks the lowest-cost head item, stamps its start and returns
// it, or nil when no batch has a pending head. A single candidate skips the
// cost computation. Exact cost ties break to the lowest item identity, not to
// iteration order. Must be called with s.mu held.
func (s *Scheduler) selectLocked() *Item {
	var heads []*Item
	for _, b := range s.batches {
		if it := b.CurrentItem(); it != nil {
			heads = append(heads, it)
		}
	}
	if len(heads) == 0 {
		return nil
	}

	chosen := heads[0]
	if len(heads) > 1 {
		now := time.Now()
		best := Cost(chosen.size, now.Sub(chosen.createdAt), s.m, s.k)
		for _, it := range heads[1:] {
			c := Cost(it.size, now.Sub(it.createdAt), s.m, s.k)
			if c < best || (c == best && it.id < chosen.id) {
				chosen, best = it, c
			}
		}
	}
	chosen.markStart()
	return chosen
}

// Complete stamps the item finished and retires its batch from the active set
// once the batch has no pending items left. An item whose owning batch is not
// active is a programming error and reported as ErrBatchNotFound.
func (s *Scheduler) Complete(it *Item) error {
	if it == nil {
		return ErrItemNil
	}

	s.mu.Lock()
	if !it.Started() {
		// defensive: completion implies a start
		it.markStart()
	}
	it.markEnd()

	idx := -1
	for i, b := range s.batches {
		if b.ID() == it.BatchID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.lg.Errorw("completed item belongs to no active batch", "item_id", it.ID(), "batch_id", it.BatchID())
		return ErrBatchNotFound
	}

	drained := false
	if b := s.batches[idx]; !b.HasPendingItems() && s.inFlightLocked(b) == 0 {
		s.batches = append(s.batches[:idx], s.batches[idx+1:]...)
		drained = true
	}
	s.mu.Unlock()

	s.cntCompleted.Inc()
	if drained {
		s.cntDrained.Inc()
		s.lg.Debugw("batch drained", "batch_id", it.BatchID())
	}
	s.lg.Debugw("item completed", "item_id", it.ID(), "batch_id", it.BatchID(),
		"worker_id", it.WorkerID(), "processing", it.ProcessingTime())
	return nil
}

// hasHeadLocked reports whether any batch still offers a scheduling candidate.
// Must be called with s.mu held.
func (s *Scheduler) hasHeadLocked() bool {
	for _, b := range s.batches {
		if b.HasPendingItems() {
			return true
		}
	}
	return false
}

// inFlightLocked counts the batch's items that started but have not completed.
// Must be called with s.mu held.
func (s *Scheduler) inFlightLocked(b *Batch) int {
	n := 0
	for _, it := range b.items {
		if it.Started() && !it.Completed() {
			n++
		}
	}
	return n
}

// Snapshot is a point-in-time, value-copied view of the scheduler's active
// batches and their waiting items for external polling.
type Snapshot struct {
	TakenAt time.Time   `json:"taken_at"`
	Batches []BatchView `json:"batches"`
}

// TotalWaiting returns the number of waiting items across all batches in the
// snapshot.
func (sn *Snapshot) TotalWaiting() int {
	n := 0
	for _, b := range sn.Batches {
		n += len(b.Items)
	}
	return n
}

// Snapshot returns a copy of the active batches and their waiting items. The
// copy never aliases live mutable scheduler state.
func (s *Scheduler) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn := &Snapshot{
		TakenAt: time.Now(),
		Batches: make([]BatchView, 0, len(s.batches)),
	}
	for _, b := range s.batches {
		sn.Batches = append(sn.Batches, b.View())
	}
	return sn
}

// Close wakes every waiting Acquire and makes all future ones return nil
// promptly. Submitted state is left intact for inspection. Safe to call
// multiple times.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.lg.Debug("scheduler closed")
	})
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	return s.ctx.Err() != nil
}

// signal wakes one waiter without blocking; the slot being full already means
// a wakeup is pending.
func (s *Scheduler) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
