package batchman

import (
	"time"
)

// Config carries the values (not files) that shape a Manager. Validation
// happens once, at construction; a Config accepted by Validate never raises
// mid-run.
type Config struct {
	// WorkerCount is the fixed number of workers competing for items.
	WorkerCount int
	// ProducerInterval is the pause between automatic generation cycles.
	ProducerInterval time.Duration
	// BatchCountMin and BatchCountMax bound how many items an automatically
	// generated batch holds. A zero minimum makes degenerate batches possible,
	// which is legal; they are never registered as active.
	BatchCountMin int
	BatchCountMax int
	// ItemSizeMin and ItemSizeMax bound the size drawn for each item.
	ItemSizeMin float64
	ItemSizeMax float64
	// CostM scales the size penalty of the cost rule (larger m, weaker
	// penalty); CostK scales the wait bonus (zero disables aging).
	CostM float64
	CostK float64

	// UnitTime is the simulated processing cost per size unit; defaults to
	// 10ms so a size-100 item processes for one second.
	UnitTime time.Duration
	// AcquirePoll bounds each idle Acquire wait so workers recheck their stop
	// flag periodically; defaults to 100ms.
	AcquirePoll time.Duration
	// StopGrace is how long Stop waits for an in-flight generation cycle to
	// settle before stopping the workers; defaults to 200ms.
	StopGrace time.Duration
	// JoinTimeout bounds the total wait for worker loops to exit during Stop;
	// workers still running afterwards are abandoned and reported; defaults
	// to 2s.
	JoinTimeout time.Duration
	// EventQueueSize is the capacity of the async event queue when async
	// delivery is enabled; defaults to 64.
	EventQueueSize int
}

const (
	defaultUnitTime       = 10 * time.Millisecond
	defaultAcquirePoll    = 100 * time.Millisecond
	defaultStopGrace      = 200 * time.Millisecond
	defaultJoinTimeout    = 2 * time.Second
	defaultEventQueueSize = 64
)

// DefaultConfig returns a moderate tuning: five workers, one batch of 1-5
// items per second, sizes 1-1000, m=k=1.
func DefaultConfig() Config {
	return Config{
		WorkerCount:      5,
		ProducerInterval: time.Second,
		BatchCountMin:    1,
		BatchCountMax:    5,
		ItemSizeMin:      1,
		ItemSizeMax:      1000,
		CostM:            1,
		CostK:            1,
	}
}

// Validate checks the scheduling-relevant fields and returns the first
// violation as a sentinel error.
func (c Config) Validate() error {
	switch {
	case c.WorkerCount < 1:
		return ErrInvalidWorkerCount
	case c.ProducerInterval <= 0:
		return ErrInvalidInterval
	case c.BatchCountMin < 0 || c.BatchCountMax < c.BatchCountMin:
		return ErrInvalidCountRange
	case c.ItemSizeMin <= 0 || c.ItemSizeMax < c.ItemSizeMin:
		return ErrInvalidSizeRange
	case c.CostM <= 0:
		return ErrInvalidCostM
	case c.CostK < 0:
		return ErrInvalidCostK
	default:
		return nil
	}
}

// withDefaults fills the ambient tunables left at their zero value.
func (c Config) withDefaults() Config {
	if c.UnitTime <= 0 {
		c.UnitTime = defaultUnitTime
	}
	if c.AcquirePoll <= 0 {
		c.AcquirePoll = defaultAcquirePoll
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = defaultJoinTimeout
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = defaultEventQueueSize
	}
	return c
}
