package lockknock

import (
	"context"
	"testing"
	"time"
)

// AssertionConfig contains thresholds for contention properties.
type AssertionConfig struct {
	// Minimum metric for code to count as lock-bound
	MinLockBound float64

	// Maximum metric for code to count as lock-free
	MaxLockFree float64

	// Sampling configuration used by the assertions
	Monitor Config
}

// DefaultAssertionConfig returns conservative thresholds.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		MinLockBound: 0.8,
		MaxLockFree:  0.1,
		Monitor:      DefaultConfig(),
	}
}

// MeasureContention runs fn under a fresh Monitor probing lock and returns
// the counters of the session.
func MeasureContention(t testing.TB, lock GlobalLock, cfg Config, fn func(ctx context.Context) error) Stats {
	t.Helper()

	m, err := NewMonitor(cfg, WithLock(lock))
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	defer m.Close()

	stats, err := m.Measure(context.Background(), fn)
	if err != nil {
		t.Fatalf("Measured function failed: %v", err)
	}
	return stats
}

// AssertLockBound verifies fn spends most of its time contending for lock.
//
// Lock-bound code gains little from extra goroutines: every one of them
// queues on the same lock.
func AssertLockBound(t testing.TB, lock GlobalLock, cfg AssertionConfig, fn func(ctx context.Context) error) {
	t.Helper()

	stats := MeasureContention(t, lock, cfg.Monitor, fn)
	if got := stats.Ratio(); got < cfg.MinLockBound {
		t.Errorf("Contention too low: %.4f (min: %.4f)\n"+
			"Code does not appear to be bound by the global lock.",
			got, cfg.MinLockBound)
		return
	}

	t.Logf("✓ Lock-bound: contention = %.4f (threshold: %.4f)", stats.Ratio(), cfg.MinLockBound)
	t.Logf("  busy=%v total=%v probes=%d timeouts=%d", stats.Busy, stats.Total, stats.Probes, stats.Timeouts)
}

// AssertLockFree verifies fn leaves lock essentially uncontended.
func AssertLockFree(t testing.TB, lock GlobalLock, cfg AssertionConfig, fn func(ctx context.Context) error) {
	t.Helper()

	stats := MeasureContention(t, lock, cfg.Monitor, fn)
	if got := stats.Ratio(); got > cfg.MaxLockFree {
		t.Errorf("Contention too high: %.4f (max: %.4f)\n"+
			"Code holds the global lock; consider releasing it around blocking work.",
			got, cfg.MaxLockFree)
		return
	}

	t.Logf("✓ Lock-free: contention = %.4f (threshold: %.4f)", stats.Ratio(), cfg.MaxLockFree)
	t.Logf("  busy=%v total=%v probes=%d", stats.Busy, stats.Total, stats.Probes)
}

// PrintAnalysis outputs benchmark results with their contention to the test log.
func PrintAnalysis(t testing.TB, results []Result) {
	t.Helper()

	speedup := Speedup(results)

	t.Logf("\n=== Contention Analysis ===")
	t.Logf("  N    Throughput    Speedup   Contention  Timeouts  Latency p50  Lock wait p50")
	t.Logf("  --   ------------  --------  ----------  --------  -----------  -------------")
	for i, r := range results {
		latency, wait := CalculateStatistics(r), LockWaitStatistics(r)
		t.Logf("  %-4d %12.2f  %7.2fx  %9.1f%%  %8d  %11v  %13v",
			r.N, r.Throughput, speedup[i], r.Contention*100, r.Lock.Timeouts,
			latency.P50.Round(time.Microsecond), wait.P50.Round(time.Microsecond))
	}

	if len(results) == 0 {
		return
	}

	last := results[len(results)-1]
	t.Logf("\nInterpretation:")
	switch {
	case last.Contention < 0.1:
		t.Logf("  ✓ Low contention (< 10%%) - extra goroutines run in parallel")
	case last.Contention < 0.5:
		t.Logf("  ⚠ Moderate contention (< 50%%) - partial serialization on the lock")
	default:
		t.Logf("  ✗ High contention (≥ 50%%) - work is serialized by the global lock")
	}
}
