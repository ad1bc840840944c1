package batchman

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Worker repeatedly acquires the best-priority item from its scheduler,
// simulates processing for a duration proportional to the item's size, and
// reports completion. Workers never coordinate with each other; the scheduler
// mediates everything.
type Worker struct {
	// basic
	ctx    context.Context
	cancel context.CancelFunc
	lg     *zap.SugaredLogger
	id     int
	// core
	sched    *Scheduler
	obs      Observer
	unitTime time.Duration
	poll     time.Duration
	done     chan struct{}
	// counters
	cntDone atomic.Int64
	busy    atomic.Bool
}

// NewWorker creates a worker with the given identity. unitTime is the
// simulated processing cost per size unit; poll bounds each Acquire wait so
// the stop signal is rechecked periodically even while idle. A nil observer
// defaults to NopObserver.
func NewWorker(id int, sched *Scheduler, obs Observer, unitTime, poll time.Duration) *Worker {
	if obs == nil {
		obs = NopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		ctx:      ctx,
		cancel:   cancel,
		lg:       log.With("worker", id),
		id:       id,
		sched:    sched,
		obs:      obs,
		unitTime: unitTime,
		poll:     poll,
		done:     make(chan struct{}),
	}
	w.lg.Debugw("new worker created", "unit_time", unitTime, "poll", poll)
	return w
}

func (w *Worker) String() string {
	return fmt.Sprintf(emojiWorker+"Worker[%d](Busy:%t,Completed:%d)", w.id, w.busy.Load(), w.cntDone.Load())
}

// ID returns the identity of the worker.
func (w *Worker) ID() int { return w.id }

// Busy reports whether the worker currently holds an item in flight.
func (w *Worker) Busy() bool { return w.busy.Load() }

// Stop signals the worker loop to end. Idle waits end at their next poll
// bound and in-flight processing is truncated promptly.
func (w *Worker) Stop() {
	w.cancel()
}

// Done is closed once the worker loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run executes the worker loop until Stop, or until the scheduler is closed
// and yields nothing more. It blocks; the Manager submits it to its goroutine
// pool, and tests may run it on a plain goroutine.
func (w *Worker) Run() {
	defer close(w.done)
	w.lg.Debug("worker loop started")
	for {
		select {
		case <-w.ctx.Done():
			w.lg.Debugw("worker loop done", "completed", w.cntDone.Load())
			return
		default:
		}

		it := w.sched.Acquire(w.poll)
		if it == nil {
			if w.sched.Closed() {
				// a closed scheduler never yields again; exit instead of
				// spinning on instant-nil acquisitions
				w.lg.Debugw("worker loop done on closed scheduler", "completed", w.cntDone.Load())
				return
			}
			continue
		}

		// the item is exclusively ours until Complete
		it.assignWorker(w.id)
		w.busy.Store(true)
		v := it.View()
		w.obs.OnDispatch(w.id, &v)
		w.lg.Debugw("✅ item dispatched", "item_id", it.ID(), "batch_id", it.BatchID(), "size", it.Size())

		w.simulate(it)

		if err := w.sched.Complete(it); err != nil {
			w.lg.Errorw("⚠️ item completion failed", "item_id", it.ID(), zap.Error(err))
		}
		w.cntDone.Inc()
		w.obs.OnCompleted(it.View())
		w.obs.OnDispatch(w.id, nil)
		w.busy.Store(false)
		w.lg.Debugw("🏁 item processed", "item_id", it.ID(), "done_count", w.cntDone.Load())
	}
}

// simulate sleeps for size*unitTime in bounded slices so a stop request
// truncates processing promptly instead of blocking for the full duration.
func (w *Worker) simulate(it *Item) {
	remaining := time.Duration(it.Size() * float64(w.unitTime))
	for remaining > 0 {
		slice := ProcessSliceInterval
		if slice > remaining {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-w.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		remaining -= slice
	}
}
