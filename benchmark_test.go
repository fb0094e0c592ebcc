package lockknock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func benchMonitor(t *testing.T, lock GlobalLock) *Monitor {
	t.Helper()
	m, err := NewMonitor(Config{
		PollingInterval:  time.Millisecond,
		SamplingInterval: 2 * time.Millisecond,
		Timeout:          time.Second,
	}, WithLock(lock), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

// TestRun_SimpleOperation verifies benchmark runner works.
func TestRun_SimpleOperation(t *testing.T) {
	var counter int64

	op := func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}

	cfg := DefaultBenchConfig()
	cfg.Duration = 200 * time.Millisecond
	cfg.Warmup = 50 * time.Millisecond
	cfg.Levels = []int{1, 2}

	m := benchMonitor(t, NewBigLock())
	results, err := Run(context.Background(), m, op, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	for i, want := range []int{1, 2} {
		r := results[i]
		if r.N != want {
			t.Errorf("Expected N=%d, got N=%d", want, r.N)
		}
		if r.Operations == 0 {
			t.Errorf("No operations recorded for N=%d", r.N)
		}
		if r.Contention < 0 || r.Contention > 1 {
			t.Errorf("Contention out of range for N=%d: %f", r.N, r.Contention)
		}
		if r.Lock.Probes == 0 {
			t.Errorf("Monitor did not probe during N=%d", r.N)
		}
	}

	if m.IsRunning() {
		t.Error("Monitor still running after Run")
	}

	t.Logf("N=1: %d ops, %.2f ops/sec, contention %.4f", results[0].Operations, results[0].Throughput, results[0].Contention)
	t.Logf("N=2: %d ops, %.2f ops/sec, contention %.4f", results[1].Operations, results[1].Throughput, results[1].Contention)
}

// TestRun_LockBoundOperation checks that an operation serialized on the lock
// reports more contention than one that never touches it.
func TestRun_LockBoundOperation(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	lock := NewBigLock()
	bound := Locked(lock, func(ctx context.Context) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	})
	free := func(ctx context.Context) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}

	cfg := BenchConfig{Duration: 300 * time.Millisecond, Levels: []int{4}}

	boundResults, err := Run(context.Background(), benchMonitor(t, lock), bound, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	freeResults, err := Run(context.Background(), benchMonitor(t, lock), free, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	PrintAnalysis(t, boundResults)
	PrintAnalysis(t, freeResults)

	if boundResults[0].Contention <= freeResults[0].Contention {
		t.Errorf("Expected lock-bound contention (%.4f) above lock-free (%.4f)",
			boundResults[0].Contention, freeResults[0].Contention)
	}
	if freeResults[0].Contention > 0.1 {
		t.Errorf("Lock-free operation reported contention %.4f", freeResults[0].Contention)
	}

	// Four workers share one lock held 2ms per call, so most of each call is
	// spent queued behind the other three.
	waits := LockWaitStatistics(boundResults[0])
	if waits.P50 < 2*time.Millisecond {
		t.Errorf("Expected median lock wait of several hold times, got %v", waits.P50)
	}
	if len(freeResults[0].LockWaits) != 0 {
		t.Errorf("Unwrapped operation recorded %d lock waits", len(freeResults[0].LockWaits))
	}
}

// TestLocked_RecordsLockWaits checks that lock wait is reported apart from
// operation latency, one sample per completed call.
func TestLocked_RecordsLockWaits(t *testing.T) {
	lock := NewBigLock()
	op := Locked(lock, func(ctx context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	result := runPhase(ctx, op, 3)

	if result.Operations == 0 {
		t.Fatal("No operations recorded")
	}
	if int64(len(result.LockWaits)) < result.Operations {
		t.Errorf("Expected a lock wait per operation: %d waits, %d ops", len(result.LockWaits), result.Operations)
	}
	if result.Errors != 0 {
		t.Errorf("Calls cut off by the end of the phase counted as errors: %d", result.Errors)
	}

	latency, wait := CalculateStatistics(result), LockWaitStatistics(result)
	if wait.Mean >= latency.Mean {
		t.Errorf("Lock wait mean %v should be below latency mean %v", wait.Mean, latency.Mean)
	}
	if wait.P50 < 500*time.Microsecond {
		t.Errorf("Three workers on one lock should queue, got median wait %v", wait.P50)
	}
	if !lock.TryLock() {
		t.Fatal("Lock left held after the phase")
	}
	lock.Unlock()

	t.Logf("latency p50=%v, lock wait p50=%v", latency.P50, wait.P50)
}

func TestRun_InvalidLevel(t *testing.T) {
	m := benchMonitor(t, NewBigLock())
	_, err := Run(context.Background(), m, func(context.Context) error { return nil },
		BenchConfig{Duration: 10 * time.Millisecond, Levels: []int{0}})
	if err == nil {
		t.Fatal("Expected error for N=0")
	}
}

// TestCalculateStatistics verifies percentile calculations.
func TestCalculateStatistics(t *testing.T) {
	result := Result{
		N:          1,
		Duration:   1 * time.Second,
		Operations: 5,
		Latencies: []time.Duration{
			100 * time.Microsecond,
			200 * time.Microsecond,
			300 * time.Microsecond,
			400 * time.Microsecond,
			500 * time.Microsecond,
		},
	}

	stats := CalculateStatistics(result)

	// P50 should be 300μs (middle value)
	if stats.P50 != 300*time.Microsecond {
		t.Errorf("P50: expected 300µs, got %v", stats.P50)
	}

	// Mean should be 300μs
	if stats.Mean != 300*time.Microsecond {
		t.Errorf("Mean: expected 300µs, got %v", stats.Mean)
	}

	if stats.Max != 500*time.Microsecond {
		t.Errorf("Max: expected 500µs, got %v", stats.Max)
	}

	// Lock waits are summarized on their own; this result recorded none.
	if (LockWaitStatistics(result) != Statistics{}) {
		t.Error("Expected zero lock wait statistics without Locked operations")
	}

	if (CalculateStatistics(Result{}) != Statistics{}) {
		t.Error("Expected zero statistics for empty result")
	}

	t.Logf("Stats: mean=%v, p50=%v, p95=%v, p99=%v",
		stats.Mean, stats.P50, stats.P95, stats.P99)
}

func TestSpeedup(t *testing.T) {
	got := Speedup([]Result{
		{N: 1, Throughput: 100},
		{N: 2, Throughput: 190},
		{N: 4, Throughput: 110},
	})

	want := []float64{1, 1.9, 1.1}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Speedup[%d]: expected %.2f, got %.2f", i, want[i], got[i])
		}
	}

	if len(Speedup(nil)) != 0 {
		t.Error("Expected empty speedup for no results")
	}
}
