package batchman

import (
	"fmt"
)

// SchedulerStat represents the statistics of a scheduler.
type SchedulerStat struct {
	SubmittedBatches int64 `json:"batch_submitted"`
	DrainedBatches   int64 `json:"batch_drained"`
	ActiveBatches    int   `json:"batch_active"`
	SubmittedItems   int64 `json:"item_submitted"`
	AcquiredItems    int64 `json:"item_acquired"`
	CompletedItems   int64 `json:"item_completed"`
	WaitingItems     int   `json:"item_waiting"`
}

// String returns a string representation of the SchedulerStat struct.
func (ss SchedulerStat) String() string {
	return fmt.Sprintf(emojiStat+"SchedulerStat(Batches=%d,Drained=%d,Active=%d,Items=%d,Acquired=%d,Completed=%d,Waiting=%d)",
		ss.SubmittedBatches,
		ss.DrainedBatches,
		ss.ActiveBatches,
		ss.SubmittedItems,
		ss.AcquiredItems,
		ss.CompletedItems,
		ss.WaitingItems,
	)
}

// GetStat returns the statistics of the scheduler.
func (s *Scheduler) GetStat() *SchedulerStat {
	s.mu.Lock()
	active := len(s.batches)
	waiting := 0
	for _, b := range s.batches {
		waiting += b.pendingCount()
	}
	s.mu.Unlock()

	return &SchedulerStat{
		SubmittedBatches: s.cntBatches.Load(),
		DrainedBatches:   s.cntDrained.Load(),
		ActiveBatches:    active,
		SubmittedItems:   s.cntItems.Load(),
		AcquiredItems:    s.cntAcquired.Load(),
		CompletedItems:   s.cntCompleted.Load(),
		WaitingItems:     waiting,
	}
}

// WorkerStat represents the statistics of a worker.
type WorkerStat struct {
	WorkerID       int   `json:"worker_id"`
	Busy           bool  `json:"busy"`
	CompletedItems int64 `json:"item_completed"`
}

// String returns a string representation of the WorkerStat struct.
func (ws WorkerStat) String() string {
	return fmt.Sprintf(emojiStat+"WorkerStat[%d](Busy=%t,Completed=%d)",
		ws.WorkerID,
		ws.Busy,
		ws.CompletedItems,
	)
}

// GetStat returns the statistics of the worker.
func (w *Worker) GetStat() *WorkerStat {
	return &WorkerStat{
		WorkerID:       w.id,
		Busy:           w.busy.Load(),
		CompletedItems: w.cntDone.Load(),
	}
}

// ProducerStat represents the statistics of a producer.
type ProducerStat struct {
	ProducedBatches int64 `json:"batch_produced"`
	ProducedItems   int64 `json:"item_produced"`
}

// String returns a string representation of the ProducerStat struct.
func (ps ProducerStat) String() string {
	return fmt.Sprintf(emojiStat+"ProducerStat(Batches=%d,Items=%d)",
		ps.ProducedBatches,
		ps.ProducedItems,
	)
}

// GetStat returns the statistics of the producer.
func (p *Producer) GetStat() *ProducerStat {
	return &ProducerStat{
		ProducedBatches: p.cntBatches.Load(),
		ProducedItems:   p.cntItems.Load(),
	}
}

// ManagerStat represents the statistics of a manager and everything it owns.
type ManagerStat struct {
	Scheduler *SchedulerStat `json:"scheduler"`
	Producer  *ProducerStat  `json:"producer"`
	Workers   []*WorkerStat  `json:"workers"`
}

// String returns a string representation of the ManagerStat struct.
func (ms ManagerStat) String() string {
	busy := 0
	totalCompleted := int64(0)
	for _, ws := range ms.Workers {
		if ws.Busy {
			busy++
		}
		totalCompleted += ws.CompletedItems
	}

	return fmt.Sprintf(emojiStat+"ManagerStat(Workers=%d,Busy=%d,Completed=%d,Batches=%d,Active=%d,Waiting=%d)",
		len(ms.Workers),
		busy,
		totalCompleted,
		ms.Scheduler.SubmittedBatches,
		ms.Scheduler.ActiveBatches,
		ms.Scheduler.WaitingItems,
	)
}

// GetStat returns the statistics of the manager.
func (m *Manager) GetStat() *ManagerStat {
	ws := make([]*WorkerStat, len(m.workers))
	for i, w := range m.workers {
		ws[i] = w.GetStat()
	}
	return &ManagerStat{
		Scheduler: m.sched.GetStat(),
		Producer:  m.producer.GetStat(),
		Workers:   ws,
	}
}
