package batchman

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Batch is an ordered group of items submitted together. The order is fixed at
// construction: items are sorted ascending by size, with equal sizes kept in
// identity order, and are only ever offered to the scheduler head-first.
//
// A Batch performs no locking of its own; once submitted it belongs to the
// scheduler and all access goes through the scheduler's lock.
type Batch struct {
	id        int64
	items     []*Item
	createdAt time.Time
}

// NewBatch creates a batch owning the given items, sorted ascending by size.
// Every item is stamped with the batch identity.
func NewBatch(id int64, items []*Item) *Batch {
	owned := make([]*Item, len(items))
	copy(owned, items)
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].size < owned[j].size
	})
	for _, it := range owned {
		it.batchID = id
	}
	return &Batch{
		id:        id,
		items:     owned,
		createdAt: time.Now(),
	}
}

func (b *Batch) String() string {
	return fmt.Sprintf(emojiBatch+"Batch[%d](Items:%d,Pending:%d)", b.id, len(b.items), b.pendingCount())
}

// ID returns the unique identity of the batch.
func (b *Batch) ID() int64 { return b.id }

// CreatedAt returns the creation timestamp of the batch.
func (b *Batch) CreatedAt() time.Time { return b.createdAt }

// Len returns the total number of items in the batch, drained or not.
func (b *Batch) Len() int { return len(b.items) }

// Items returns the batch's items in offering order. The slice is a copy; the
// items are the live entities.
func (b *Batch) Items() []*Item {
	out := make([]*Item, len(b.items))
	copy(out, b.items)
	return out
}

// CurrentItem returns the batch's single scheduling candidate: the first item
// that has not started yet, or nil if the batch is drained.
func (b *Batch) CurrentItem() *Item {
	for _, it := range b.items {
		if !it.Started() {
			return it
		}
	}
	return nil
}

// HasPendingItems reports whether the batch still has a scheduling candidate.
func (b *Batch) HasPendingItems() bool {
	return b.CurrentItem() != nil
}

// Sizes returns a comma-separated rendering of the item sizes in offering order.
func (b *Batch) Sizes() string {
	parts := make([]string, len(b.items))
	for i, it := range b.items {
		parts[i] = fmt.Sprintf("%g", it.size)
	}
	return strings.Join(parts, ", ")
}

func (b *Batch) pendingCount() int {
	n := 0
	for _, it := range b.items {
		if !it.Started() {
			n++
		}
	}
	return n
}

// BatchView is a value copy of a batch and its still-waiting items for events
// and snapshots.
type BatchView struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []ItemView `json:"items"`
}

// View returns a value copy of the batch holding the items that have not
// started yet at the time of the call.
func (b *Batch) View() BatchView {
	v := BatchView{
		ID:        b.id,
		CreatedAt: b.createdAt,
		Items:     make([]ItemView, 0, len(b.items)),
	}
	for _, it := range b.items {
		if !it.Started() {
			v.Items = append(v.Items, it.View())
		}
	}
	return v
}
