package batchman

import (
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ManagerOption is the type for functional options for the manager.
type ManagerOption func(*Manager)

// WithObserver sets the observer receiving created/dispatch/completed events.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		m.userObs = o
	}
}

// WithMetrics registers the scheduler's prometheus instruments with reg and
// feeds them from the event stream.
func WithMetrics(reg prometheus.Registerer) ManagerOption {
	return func(m *Manager) {
		m.metricsReg = reg
	}
}

// WithManualMode disables the automatic producer; batches enter the system
// only through InjectBatch.
func WithManualMode() ManagerOption {
	return func(m *Manager) {
		m.manual = true
	}
}

// WithAsyncEvents delivers events through a bounded queue on a dedicated
// goroutine instead of inline on the worker goroutines.
func WithAsyncEvents() ManagerOption {
	return func(m *Manager) {
		m.asyncEvents = true
	}
}

// Manager owns one scheduler, a fixed-size worker pool and, unless manual
// mode is chosen, an automatic producer. It is the only component with
// lifecycle authority over the goroutines it creates.
type Manager struct {
	// basic
	lg   *zap.SugaredLogger
	name string
	cfg  Config
	// options
	userObs     Observer
	metricsReg  prometheus.Registerer
	manual      bool
	asyncEvents bool
	// core
	gen      *Generator
	sched    *Scheduler
	producer *Producer
	workers  []*Worker
	pool     *ants.Pool
	async    *AsyncObserver
	metrics  *Metrics
	life     lifecycle
	// counters
	cntInjected atomic.Int64
}

// lifecycle guards Start/Stop idempotence.
type lifecycle struct {
	started atomic.Bool
	stopped atomic.Bool
}

func createPool(size int) *ants.Pool {
	pl, _ := ants.NewPool(size, ants.WithNonblocking(false))
	return pl
}

// NewManager validates cfg, fills ambient defaults and wires the scheduler,
// the workers and the producer. Configuration errors surface here and never
// mid-run.
func NewManager(name string, cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	m := &Manager{
		lg:   log.With("manager", name),
		name: name,
		cfg:  cfg,
		gen:  NewGenerator(),
	}
	// apply options
	for _, opt := range opts {
		opt(m)
	}

	// compose the observer chain: user observer, then metrics, then the
	// optional async boundary in front of both
	obs := m.userObs
	if obs == nil {
		obs = NopObserver{}
	}
	if m.metricsReg != nil {
		m.metrics = NewMetrics(m.metricsReg)
		obs = Observers{obs, m.metrics.Observer()}
	}
	if m.asyncEvents {
		m.async = NewAsyncObserver(obs, cfg.EventQueueSize)
		obs = m.async
	}

	sched, err := NewScheduler(cfg.CostM, cfg.CostK, obs)
	if err != nil {
		return nil, err
	}
	m.sched = sched

	m.workers = make([]*Worker, cfg.WorkerCount)
	for i := range m.workers {
		m.workers[i] = NewWorker(i, sched, obs, cfg.UnitTime, cfg.AcquirePoll)
	}
	m.pool = createPool(cfg.WorkerCount)

	// the producer exists in manual mode too: InjectBatch routes through the
	// same construction path, it just never runs its own loop
	m.producer = NewProducer(sched, m.gen, cfg)

	m.lg.Debugw("new manager created", "workers", cfg.WorkerCount, "manual", m.manual)
	return m, nil
}

func (m *Manager) String() string {
	return fmt.Sprintf(
		emojiManager+"Manager[%s](Workers:%d,Manual:%t,Injected:%d)",
		m.name,
		len(m.workers),
		m.manual,
		m.cntInjected.Load(),
	)
}

// GetName returns the id of the manager.
func (m *Manager) GetName() string {
	return m.name
}

// GetScheduler returns the scheduler for direct submission or inspection.
func (m *Manager) GetScheduler() *Scheduler {
	return m.sched
}

// GetMetrics returns the registered instruments, nil unless WithMetrics was
// given.
func (m *Manager) GetMetrics() *Metrics {
	return m.metrics
}

// Start launches every worker on the goroutine pool and then, in automatic
// mode, the producer. Calling Start again is a no-op.
func (m *Manager) Start() {
	if !m.life.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range m.workers {
		w := w
		if err := m.pool.Submit(w.Run); err != nil {
			m.lg.Errorw("⚠️ failed to launch worker", "worker_id", w.ID(), zap.Error(err))
		}
	}
	if !m.manual {
		m.producer.StartAsync()
	}
	m.lg.Infow("manager started", "workers", len(m.workers), "manual", m.manual)
}

// Stop shuts the system down in order: the producer first, with a grace
// period for an in-flight cycle to settle, then the scheduler and the
// workers. Each worker is joined against a shared bounded deadline; the ids
// of workers that failed to join are returned and reported, not treated as a
// fatal failure. Stop always returns within roughly StopGrace + JoinTimeout.
func (m *Manager) Stop() []int {
	if !m.life.started.Load() {
		return nil
	}
	if !m.life.stopped.CompareAndSwap(false, true) {
		return nil
	}

	if !m.manual {
		m.producer.Stop()
		timer := time.NewTimer(m.cfg.StopGrace)
		select {
		case <-m.producer.Done():
			timer.Stop()
		case <-timer.C:
			m.lg.Warn("producer did not settle within the grace period")
		}
	}

	m.sched.Close()
	for _, w := range m.workers {
		w.Stop()
	}

	var abandoned []int
	deadline := time.Now().Add(m.cfg.JoinTimeout)
	for _, w := range m.workers {
		remain := time.Until(deadline)
		if remain < 0 {
			remain = 0
		}
		timer := time.NewTimer(remain)
		select {
		case <-w.Done():
			timer.Stop()
		case <-timer.C:
			abandoned = append(abandoned, w.ID())
		}
	}
	if len(abandoned) > 0 {
		m.lg.Warnw("⚠️ workers abandoned at join timeout", "worker_ids", abandoned)
	}

	m.pool.Release()
	if m.async != nil {
		m.async.Close()
	}
	m.lg.Infow("manager stopped", "abandoned", len(abandoned))
	return abandoned
}

// InjectBatch synchronously constructs and submits one batch with count
// randomly sized items, the manual entry point mirroring one automatic
// producer cycle. A zero count builds a degenerate batch that is never
// registered.
func (m *Manager) InjectBatch(count int) (*Batch, error) {
	b, err := m.producer.Generate(count)
	if err != nil {
		return nil, err
	}
	m.cntInjected.Inc()
	return b, nil
}

// Snapshot returns a copy of the active batches and waiting items.
func (m *Manager) Snapshot() *Snapshot {
	return m.sched.Snapshot()
}
