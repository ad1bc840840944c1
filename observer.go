package batchman

// Observer receives the scheduling events the core exposes for external
// consumption. Implementations must be safe for concurrent use: workers and
// the producer emit events from their own goroutines. Callbacks run inline on
// those goroutines, so a slow observer slows the system down; wrap it in an
// AsyncObserver when that matters.
type Observer interface {
	// OnCreated fires when a new batch is submitted; the view carries the
	// batch's waiting items.
	OnCreated(batch BatchView)
	// OnDispatch fires when a worker begins processing an item, and again
	// with a nil item when the worker returns to idle.
	OnDispatch(workerID int, item *ItemView)
	// OnCompleted fires when an item finishes, carrying its fully-stamped
	// record.
	OnCompleted(item ItemView)
}

// NopObserver is the default Observer; it ignores every event.
type NopObserver struct{}

// OnCreated implements Observer.
func (NopObserver) OnCreated(BatchView) {}

// OnDispatch implements Observer.
func (NopObserver) OnDispatch(int, *ItemView) {}

// OnCompleted implements Observer.
func (NopObserver) OnCompleted(ItemView) {}

// Observers fans every event out to each member in order.
type Observers []Observer

// OnCreated implements Observer.
func (os Observers) OnCreated(batch BatchView) {
	for _, o := range os {
		o.OnCreated(batch)
	}
}

// OnDispatch implements Observer.
func (os Observers) OnDispatch(workerID int, item *ItemView) {
	for _, o := range os {
		o.OnDispatch(workerID, item)
	}
}

// OnCompleted implements Observer.
func (os Observers) OnCompleted(item ItemView) {
	for _, o := range os {
		o.OnCompleted(item)
	}
}
