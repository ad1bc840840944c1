package batchman

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the prometheus instruments the scheduler core exposes.
// Register once via NewMetrics with a caller-owned registry; the core never
// touches the default registerer, which keeps tests isolated.
type Metrics struct {
	BatchesSubmitted prometheus.Counter
	ItemsSubmitted   prometheus.Counter
	ItemsCompleted   *prometheus.CounterVec
	WaitingItems     prometheus.Gauge
	WaitTime         prometheus.Histogram
	ProcessTime      prometheus.Histogram
}

// NewMetrics registers all instruments with the given registerer and returns
// the populated Metrics struct.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchman_batches_submitted_total",
			Help: "Total number of batches registered with the scheduler.",
		}),
		ItemsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchman_items_submitted_total",
			Help: "Total number of items submitted across all batches.",
		}),
		ItemsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchman_items_completed_total",
			Help: "Total number of items completed, by worker.",
		}, []string{"worker"}),
		WaitingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchman_waiting_items",
			Help: "Current number of items waiting for a worker.",
		}),
		WaitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchman_item_wait_seconds",
			Help:    "Time items spent waiting between submission and dispatch.",
			Buckets: prometheus.DefBuckets,
		}),
		ProcessTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchman_item_processing_seconds",
			Help:    "Time items spent in simulated processing.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.BatchesSubmitted,
		m.ItemsSubmitted,
		m.ItemsCompleted,
		m.WaitingItems,
		m.WaitTime,
		m.ProcessTime,
	)

	return m
}

// Observer adapts the instruments to the Observer interface so the metrics
// ride the same event stream as any other consumer.
func (m *Metrics) Observer() Observer {
	return &metricsObserver{m: m}
}

type metricsObserver struct {
	m *Metrics
}

func (o *metricsObserver) OnCreated(batch BatchView) {
	o.m.BatchesSubmitted.Inc()
	o.m.ItemsSubmitted.Add(float64(len(batch.Items)))
	o.m.WaitingItems.Add(float64(len(batch.Items)))
}

func (o *metricsObserver) OnDispatch(workerID int, item *ItemView) {
	if item == nil {
		return
	}
	o.m.WaitingItems.Dec()
	o.m.WaitTime.Observe(item.StartedAt.Sub(item.CreatedAt).Seconds())
}

func (o *metricsObserver) OnCompleted(item ItemView) {
	o.m.ItemsCompleted.WithLabelValues(strconv.Itoa(item.WorkerID)).Inc()
	o.m.ProcessTime.Observe(item.CompletedAt.Sub(item.StartedAt).Seconds())
}
