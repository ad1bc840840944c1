package batchman

import (
	"fmt"
	"time"
)

// Item is the smallest schedulable unit of work. Its size is the
// processing-cost unit the scheduler and the workers reason about.
//
// Timestamp fields are stamped under the scheduler's lock (creation, start,
// completion) or by the single worker holding the item in flight (worker
// identity), so an item is never written by two goroutines at once.
type Item struct {
	id          int64
	batchID     int64
	size        float64
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	workerID    int
}

// NewItem creates an item with the given identity and size, stamped created
// now. The owning batch identity is assigned when the item joins a batch.
func NewItem(id int64, size float64) *Item {
	return &Item{
		id:        id,
		size:      size,
		createdAt: time.Now(),
		workerID:  -1,
	}
}

func (it *Item) String() string {
	return fmt.Sprintf(emojiItem+"Item[%d](Batch:%d,Size:%.2f)", it.id, it.batchID, it.size)
}

// ID returns the unique identity of the item.
func (it *Item) ID() int64 { return it.id }

// BatchID returns the identity of the owning batch, 0 before the item joins one.
func (it *Item) BatchID() int64 { return it.batchID }

// Size returns the size of the item.
func (it *Item) Size() float64 { return it.size }

// CreatedAt returns the creation timestamp of the item.
func (it *Item) CreatedAt() time.Time { return it.createdAt }

// StartedAt returns the start timestamp, zero while the item is still waiting.
func (it *Item) StartedAt() time.Time { return it.startedAt }

// CompletedAt returns the completion timestamp, zero until the item finishes.
func (it *Item) CompletedAt() time.Time { return it.completedAt }

// WorkerID returns the identity of the worker processing the item, -1 if none.
func (it *Item) WorkerID() int { return it.workerID }

// Started reports whether processing of the item has begun.
func (it *Item) Started() bool { return !it.startedAt.IsZero() }

// Completed reports whether the item has finished processing.
func (it *Item) Completed() bool { return !it.completedAt.IsZero() }

// WaitingTime returns how long the item waited between creation and start,
// measured up to now while it is still waiting.
func (it *Item) WaitingTime() time.Duration {
	if !it.Started() {
		return time.Since(it.createdAt)
	}
	return it.startedAt.Sub(it.createdAt)
}

// ProcessingTime returns how long the item has been processed, measured up to
// now while it is still in flight and zero before it starts.
func (it *Item) ProcessingTime() time.Duration {
	if !it.Started() {
		return 0
	}
	if !it.Completed() {
		return time.Since(it.startedAt)
	}
	return it.completedAt.Sub(it.startedAt)
}

// markStart stamps the moment the item is handed to a worker.
func (it *Item) markStart() {
	it.startedAt = time.Now()
}

// markEnd stamps the moment the item finished processing.
func (it *Item) markEnd() {
	it.completedAt = time.Now()
}

// assignWorker records which worker holds the item in flight.
func (it *Item) assignWorker(workerID int) {
	it.workerID = workerID
}

// ItemView is a value copy of an item's record for events and snapshots. It
// never aliases live scheduler state.
type ItemView struct {
	ID          int64     `json:"id"`
	BatchID     int64     `json:"batch_id"`
	Size        float64   `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	WorkerID    int       `json:"worker_id"`
}

// View returns a value copy of the item's current record.
func (it *Item) View() ItemView {
	return ItemView{
		ID:          it.id,
		BatchID:     it.batchID,
		Size:        it.size,
		CreatedAt:   it.createdAt,
		StartedAt:   it.startedAt,
		CompletedAt: it.completedAt,
		WorkerID:    it.workerID,
	}
}
