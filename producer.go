package batchman

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/1set/gut/yrand"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Producer manufactures batches of randomly sized items and submits them to
// its scheduler. It runs in one of two modes through the same construction
// path: automatic, a goroutine building one batch per interval, and manual,
// where Generate builds exactly one batch per call.
type Producer struct {
	// basic
	ctx    context.Context
	cancel context.CancelFunc
	lg     *zap.SugaredLogger
	// core
	sched     *Scheduler
	gen       *Generator
	interval  time.Duration
	countMin  int
	countMax  int
	sizeMin   float64
	sizeMax   float64
	startOnce sync.Once
	done      chan struct{}
	// counters
	cntBatches atomic.Int64
	cntItems   atomic.Int64
}

// NewProducer creates a producer feeding the given scheduler, drawing item
// counts and sizes from the ranges in cfg. The configuration is assumed to be
// validated; NewManager is the validating entry point.
func NewProducer(sched *Scheduler, gen *Generator, cfg Config) *Producer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Producer{
		ctx:      ctx,
		cancel:   cancel,
		lg:       log.With("component", "producer"),
		sched:    sched,
		gen:      gen,
		interval: cfg.ProducerInterval,
		countMin: cfg.BatchCountMin,
		countMax: cfg.BatchCountMax,
		sizeMin:  cfg.ItemSizeMin,
		sizeMax:  cfg.ItemSizeMax,
		done:     make(chan struct{}),
	}
	p.lg.Debugw("new producer created", "interval", cfg.ProducerInterval,
		"count_range", fmt.Sprintf("[%d,%d]", cfg.BatchCountMin, cfg.BatchCountMax),
		"size_range", fmt.Sprintf("[%g,%g]", cfg.ItemSizeMin, cfg.ItemSizeMax))
	return p
}

func (p *Producer) String() string {
	return fmt.Sprintf(emojiProducer+"Producer(Interval:%s,Batches:%d,Items:%d)",
		p.interval, p.cntBatches.Load(), p.cntItems.Load())
}

// StartAsync launches the automatic generation loop. Subsequent calls are
// no-ops.
func (p *Producer) StartAsync() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Stop signals the generation loop to end; the inter-cycle wait aborts
// immediately rather than completing its full duration.
func (p *Producer) Stop() {
	p.cancel()
}

// Done is closed once the automatic loop has exited. It never closes for a
// producer used purely manually.
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

func (p *Producer) run() {
	defer close(p.done)
	p.lg.Debug("producer loop started")
	rd := 0
	for {
		select {
		case <-p.ctx.Done():
			p.lg.Debugw("producer loop done", "round", rd)
			return
		default:
		}

		rd++
		count := randomCount(p.countMin, p.countMax)
		if _, err := p.Generate(count); err != nil {
			p.lg.Warnw("batch generation failed", "round", rd, zap.Error(err))
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			p.lg.Debugw("producer loop done", "round", rd)
			return
		case <-timer.C:
		}
	}
}

// Generate builds one batch with count items of random size and submits it
// synchronously. A zero count is a legal degenerate input: the batch is
// constructed but never registered as active. Returns the batch for
// inspection.
func (p *Producer) Generate(count int) (*Batch, error) {
	if count < 0 {
		return nil, ErrInvalidItemCount
	}

	items := make([]*Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, NewItem(p.gen.NextItemID(), randomSize(p.sizeMin, p.sizeMax)))
	}
	b := NewBatch(p.gen.NextBatchID(), items)

	if err := p.sched.Submit(b); err != nil {
		if err == ErrBatchEmpty {
			p.lg.Debugw("degenerate batch not registered", "batch_id", b.ID())
			return b, nil
		}
		return nil, err
	}

	p.cntBatches.Inc()
	p.cntItems.Add(int64(count))
	p.lg.Debugw("batch generated", "batch_id", b.ID(), "items", count)
	return b, nil
}

// randomSize draws a size uniformly from [min, max]. yrand draws can fail in
// theory; the range minimum is the fallback, matching how the rest of the
// codebase treats yrand errors as non-fatal.
func randomSize(min, max float64) float64 {
	if max <= min {
		return min
	}
	f, err := yrand.Float64()
	if err != nil {
		return min
	}
	return min + f*(max-min)
}

// randomCount draws an integer uniformly from [min, max].
func randomCount(min, max int) int {
	if max <= min {
		return min
	}
	f, err := yrand.Float64()
	if err != nil {
		return min
	}
	n := min + int(f*float64(max-min+1))
	if n > max {
		n = max
	}
	return n
}
