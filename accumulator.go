package lockknock

import (
	"sync/atomic"
	"time"
)

// Stats is a consistent snapshot of the accumulated contention counters.
type Stats struct {
	Busy     time.Duration // Time spent waiting on the global lock
	Total    time.Duration // Wall-clock time covered by completed cycles
	Probes   uint64        // Completed probes
	Timeouts uint64        // Probes that gave up before acquiring the lock
}

// Ratio returns Busy/Total in [0,1], or 0 when nothing was measured.
func (s Stats) Ratio() float64 {
	if s.Total <= 0 {
		return 0
	}
	r := float64(s.Busy) / float64(s.Total)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// Accumulator holds the busy and total time counters. It has a single writer
// (the sampler) and any number of readers.
//
// Each update publishes a new immutable Stats, so readers never observe a
// busy value from one cycle paired with a total from another.
type Accumulator struct {
	cur atomic.Pointer[Stats]
}

// NewAccumulator returns a zeroed Accumulator.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	a.cur.Store(&Stats{})
	return a
}

// Add folds one cycle into the counters. wait is clamped to span so that
// Busy never exceeds Total.
func (a *Accumulator) Add(wait, span time.Duration, timedOut bool) {
	if span < 0 {
		span = 0
	}
	wait = max(0, min(wait, span))

	for {
		old := a.cur.Load()
		next := &Stats{
			Busy:     old.Busy + wait,
			Total:    old.Total + span,
			Probes:   old.Probes + 1,
			Timeouts: old.Timeouts,
		}
		if timedOut {
			next.Timeouts++
		}
		// A concurrent Reset makes the swap fail; retry on top of the zero value.
		if a.cur.CompareAndSwap(old, next) {
			return
		}
	}
}

// Reset zeroes the counters.
func (a *Accumulator) Reset() {
	a.cur.Store(&Stats{})
}

// Snapshot returns the current counters.
func (a *Accumulator) Snapshot() Stats {
	return *a.cur.Load()
}

// Ratio returns the current contention ratio.
func (a *Accumulator) Ratio() float64 {
	return a.Snapshot().Ratio()
}
