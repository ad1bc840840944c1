package batchman

import (
	"go.uber.org/atomic"
)

// Generator hands out unique, monotonically increasing identities for batches
// and items. It is owned by whoever constructs entities (typically the
// Manager) and injected into producers, so identity assignment carries no
// hidden global state and stays deterministic in tests.
type Generator struct {
	batchID atomic.Int64
	itemID  atomic.Int64
}

// NewGenerator creates a Generator with both counters at zero; the first
// identity handed out is 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// NextBatchID returns the next unused batch identity.
func (g *Generator) NextBatchID() int64 {
	return g.batchID.Inc()
}

// NextItemID returns the next unused item identity.
func (g *Generator) NextItemID() int64 {
	return g.itemID.Inc()
}
