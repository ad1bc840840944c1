package batchman_test

import (
	"math"
	"testing"
	"time"

	"gopkg.in/batchman.v0"
)

func TestCostNumericExample(t *testing.T) {
	// m=1, k=1, size=10, wait=4s: ln(11) + 1/sqrt(4) ~= 2.398 + 0.5
	got := batchman.Cost(10, 4*time.Second, 1, 1)
	want := math.Log(11) + 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected cost %v, got %v", want, got)
	}
}

func TestCostStrictlyIncreasingInSize(t *testing.T) {
	wait := 2 * time.Second
	prev := batchman.Cost(1, wait, 1, 1)
	for _, size := range []float64{2, 5, 10, 100, 1000} {
		c := batchman.Cost(size, wait, 1, 1)
		if c <= prev {
			t.Errorf("cost not increasing at size %v: %v <= %v", size, c, prev)
		}
		prev = c
	}
}

func TestCostStrictlyDecreasingInWait(t *testing.T) {
	size := 50.0
	prev := batchman.Cost(size, 10*time.Millisecond, 1, 1)
	for _, wait := range []time.Duration{
		100 * time.Millisecond,
		time.Second,
		10 * time.Second,
		time.Minute,
	} {
		c := batchman.Cost(size, wait, 1, 1)
		if c >= prev {
			t.Errorf("cost not decreasing at wait %v: %v >= %v", wait, c, prev)
		}
		prev = c
	}
}

func TestCostZeroKDegeneratesToSizeOrdering(t *testing.T) {
	// with k=0 wait contributes nothing, only size orders
	shortWait := batchman.Cost(10, time.Millisecond, 1, 0)
	longWait := batchman.Cost(10, time.Hour, 1, 0)
	if shortWait != longWait {
		t.Errorf("expected wait-independent cost with k=0, got %v and %v", shortWait, longWait)
	}
	if batchman.Cost(5, time.Second, 1, 0) >= batchman.Cost(10, time.Second, 1, 0) {
		t.Error("expected smaller size to cost less with k=0")
	}
}

func TestCostLargerMWeakensSizePenalty(t *testing.T) {
	wait := time.Second
	if batchman.Cost(100, wait, 10, 0) >= batchman.Cost(100, wait, 1, 0) {
		t.Error("expected larger m to lower the size cost")
	}
}

func TestCostZeroWaitIsFinite(t *testing.T) {
	c := batchman.Cost(10, 0, 1, 1)
	if math.IsInf(c, 0) || math.IsNaN(c) {
		t.Errorf("expected finite cost at zero wait, got %v", c)
	}
	// negative waits clamp the same way
	if got := batchman.Cost(10, -time.Second, 1, 1); got != c {
		t.Errorf("expected clamped cost %v for negative wait, got %v", c, got)
	}
}
