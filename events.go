package batchman

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/ai69/amoy"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gopkg.in/fifo.v0"
)

type eventKind int

const (
	eventCreated eventKind = iota
	eventDispatch
	eventCompleted
)

type event struct {
	kind     eventKind
	workerID int
	item     *ItemView
	batch    BatchView
}

// AsyncObserver decouples event consumers from the worker and producer
// goroutines: events are enqueued without blocking and a single drain
// goroutine delivers them to the inner observer in order. When the queue is
// full the event is dropped and counted rather than stalling a worker.
type AsyncObserver struct {
	// basic
	ctx    context.Context
	cancel context.CancelFunc
	lg     *zap.SugaredLogger
	// core
	inner     Observer
	queue     *fifo.Queue[event]
	closeOnce sync.Once
	done      chan struct{}
	// counters
	cntDelivered atomic.Int64
	cntDropped   atomic.Int64
}

// NewAsyncObserver wraps inner with a bounded queue of the given size and
// starts the drain loop.
func NewAsyncObserver(inner Observer, queueSize int) *AsyncObserver {
	if inner == nil {
		inner = NopObserver{}
	}
	if queueSize <= 0 {
		queueSize = defaultEventQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	ao := &AsyncObserver{
		ctx:    ctx,
		cancel: cancel,
		lg:     log.With("component", "events"),
		inner:  inner,
		queue:  fifo.New[event](queueSize),
		done:   make(chan struct{}),
	}
	go ao.drain()
	ao.lg.Debugw("new async observer created", "queue_size", queueSize)
	return ao
}

func (ao *AsyncObserver) String() string {
	return fmt.Sprintf("AsyncObserver(Delivered:%d,Dropped:%d)", ao.cntDelivered.Load(), ao.cntDropped.Load())
}

// Dropped returns how many events were discarded because the queue was full.
func (ao *AsyncObserver) Dropped() int64 {
	return ao.cntDropped.Load()
}

// OnCreated implements Observer.
func (ao *AsyncObserver) OnCreated(batch BatchView) {
	ao.enqueue(event{kind: eventCreated, batch: batch})
}

// OnDispatch implements Observer.
func (ao *AsyncObserver) OnDispatch(workerID int, item *ItemView) {
	ao.enqueue(event{kind: eventDispatch, workerID: workerID, item: item})
}

// OnCompleted implements Observer.
func (ao *AsyncObserver) OnCompleted(item ItemView) {
	it := item
	ao.enqueue(event{kind: eventCompleted, item: &it})
}

// Close stops the drain loop, flushes every event still queued and then
// returns; no event is delivered after Close returns.
func (ao *AsyncObserver) Close() {
	ao.closeOnce.Do(func() {
		ao.cancel()
		<-ao.done
		_ = ao.queue.Close()
		if n := ao.cntDropped.Load(); n > 0 {
			ao.lg.Warnw("events dropped on full queue", "dropped", n)
		}
		ao.lg.Debugw("async observer closed", "delivered", ao.cntDelivered.Load())
	})
}

func (ao *AsyncObserver) enqueue(ev event) {
	if err := ao.queue.TryEnqueue(ev); err != nil {
		ao.cntDropped.Inc()
		ao.lg.Debugw("event dropped", "kind", ev.kind, zap.Error(err))
	}
}

func (ao *AsyncObserver) drain() {
	defer close(ao.done)
	rd := 0
	for {
		rd++
		select {
		case <-ao.ctx.Done():
			// flush whatever is left, then exit
			for {
				ev, err := ao.queue.TryDequeue()
				if err != nil {
					ao.lg.Debugw("event drain done", "round", rd)
					return
				}
				ao.deliver(ev)
			}
		default:
			var (
				ev  event
				err error
			)
			if ef := amoy.FixedRetry(func() error {
				ev, err = ao.queue.TryDequeue()
				return err
			}, EventDequeueRetryLimit, EventDequeueRetryInterval); ef == nil {
				ao.deliver(ev)
			} else {
				time.Sleep(EventIdleInterval)
			}
		}
	}
}

func (ao *AsyncObserver) deliver(ev event) {
	switch ev.kind {
	case eventCreated:
		ao.inner.OnCreated(ev.batch)
	case eventDispatch:
		ao.inner.OnDispatch(ev.workerID, ev.item)
	case eventCompleted:
		ao.inner.OnCompleted(*ev.item)
	}
	ao.cntDelivered.Inc()
}
