// Package batchman provides a concurrent workload-dispatch scheduler: producers
// generate batches of sized items, and a fixed pool of workers competes for the
// next item using a dynamic cost rule that balances item size against
// accumulated wait time, so small items are favored without starving large ones.
//
// It includes the following key concepts:
//
// Item:
//   - The smallest schedulable unit of work, carrying a positive size that is
//     its processing-cost unit.
//   - Each item has a unique monotonic identity, the identity of its owning
//     batch, and creation/start/completion timestamps stamped as it moves
//     through the system.
//   - An item is created, waits in its batch, is processed by exactly one
//     worker, and completes; it never moves backwards.
//
// Batch:
//   - A group of items submitted together, sorted ascending by size at
//     construction time.
//   - A batch offers only its head item (the first item not yet started) as a
//     scheduling candidate, so no batch can flood the competition with many
//     small items at once.
//   - A batch with no remaining pending items is drained and removed from the
//     scheduler's active set.
//
// Scheduler:
//   - The shared, lock-protected structure mediating all item acquisition and
//     completion.
//   - Submit inserts a batch and wakes one waiting worker; Acquire returns the
//     head item with the lowest cost, waiting up to a bounded timeout when
//     nothing is eligible; Complete stamps an item finished and retires
//     drained batches.
//   - The cost of an item is (1/m)*ln(size+1) + k/sqrt(wait); lower cost wins,
//     and cost decays as an item waits, which is the anti-starvation mechanism.
//
// Producer:
//   - Builds batches with random item counts and sizes drawn from configured
//     ranges, either periodically on its own goroutine or on demand through
//     Generate.
//
// Worker:
//   - Repeatedly acquires the best item, simulates processing for a duration
//     proportional to the item size, and reports completion. Workers never
//     coordinate with each other; the scheduler mediates everything.
//
// Manager:
//   - Owns one scheduler, a fixed worker pool, and an optional automatic
//     producer; it is the only component with lifecycle authority, providing
//     coordinated Start and Stop plus manual batch injection.
//
// Observer:
//   - Receives created/dispatch/completed events for consumption by an
//     external presentation layer. The default observer does nothing, and an
//     async variant decouples slow consumers from the worker loops.
package batchman

import (
	"errors"
	"time"
)

var (
	// ErrBatchNil is an error that indicates that the batch is nil.
	ErrBatchNil = errors.New("batchman: batch is nil")
	// ErrBatchEmpty is an error that indicates that the batch has no items and was not registered.
	ErrBatchEmpty = errors.New("batchman: batch is empty")
	// ErrItemNil is an error that indicates that the item is nil.
	ErrItemNil = errors.New("batchman: item is nil")
	// ErrBatchNotFound is an error that indicates that the owning batch of an item is not in the active set.
	ErrBatchNotFound = errors.New("batchman: batch not found")
	// ErrInvalidItemCount is an error that indicates that a negative item count was requested.
	ErrInvalidItemCount = errors.New("batchman: invalid item count")
	// ErrInvalidWorkerCount is an error that indicates that the configured worker count is invalid.
	ErrInvalidWorkerCount = errors.New("batchman: invalid worker count")
	// ErrInvalidInterval is an error that indicates that the configured producer interval is invalid.
	ErrInvalidInterval = errors.New("batchman: invalid producer interval")
	// ErrInvalidCountRange is an error that indicates that the configured batch item-count range is invalid.
	ErrInvalidCountRange = errors.New("batchman: invalid batch count range")
	// ErrInvalidSizeRange is an error that indicates that the configured item size range is invalid.
	ErrInvalidSizeRange = errors.New("batchman: invalid item size range")
	// ErrInvalidCostM is an error that indicates that the size coefficient of the cost function is invalid.
	ErrInvalidCostM = errors.New("batchman: invalid cost coefficient m")
	// ErrInvalidCostK is an error that indicates that the wait coefficient of the cost function is invalid.
	ErrInvalidCostK = errors.New("batchman: invalid cost coefficient k")
)

var (
	// ProcessSliceInterval defines the length of one bounded sleep slice while a worker simulates processing.
	ProcessSliceInterval = 20 * time.Millisecond
	// EventIdleInterval defines how long the async event loop sleeps when its queue stays empty.
	EventIdleInterval = 50 * time.Millisecond
	// EventDequeueRetryInterval defines the interval for retrying dequeue operations in the async event loop.
	EventDequeueRetryInterval = 20 * time.Millisecond
	// EventDequeueRetryLimit defines the maximum number of retry attempts for dequeue operations in the async event loop.
	EventDequeueRetryLimit = uint(3)
)

const (
	emojiStat     = "📊"
	emojiItem     = "📄"
	emojiBatch    = "📦"
	emojiSched    = "🚦"
	emojiWorker   = "🧵"
	emojiProducer = "🏭"
	emojiManager  = "📨"
)
