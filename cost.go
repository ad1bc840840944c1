package batchman

import (
	"math"
	"time"
)

// costWaitFloor keeps the wait term finite for items that have not waited yet.
const costWaitFloor = time.Millisecond

// Cost scores one item for scheduling. Lower cost wins.
//
// The score is (1/m)*ln(size+1) + k/sqrt(wait), with wait floored at one
// millisecond. The size term grows with the item, the wait term shrinks as the
// item ages, so an item's priority improves monotonically the longer it waits.
// With k = 0 the rule degenerates to pure size ordering with no starvation
// protection; a larger m weakens the size penalty.
func Cost(size float64, wait time.Duration, m, k float64) float64 {
	if wait < costWaitFloor {
		wait = costWaitFloor
	}
	sizeCost := (1.0 / m) * math.Log(size+1)
	waitCost := k / math.Sqrt(wait.Seconds())
	return sizeCost + waitCost
}
