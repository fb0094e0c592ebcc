package lockknock

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"
)

// Operation represents a benchmarked operation. It should take the global
// lock for whatever portion of its work needs exclusive execution, either
// directly or by being wrapped with Locked.
type Operation func(ctx context.Context) error

// Result contains measurements from a single concurrency level.
type Result struct {
	N          int             // Number of concurrent workers
	Duration   time.Duration   // Total benchmark duration
	Operations int64           // Total operations completed
	Throughput float64         // Operations per second
	Latencies  []time.Duration // Individual operation latencies (for percentiles)
	LockWaits  []time.Duration // Time each Locked call queued for its lock
	Errors     int64           // Number of failed operations
	Contention float64         // Global lock contention measured during the run
	Lock       Stats           // Raw monitor counters behind Contention
}

// Statistics contains percentile latency data.
type Statistics struct {
	Mean   time.Duration
	Stddev time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Max    time.Duration
}

// BenchConfig controls benchmark execution.
type BenchConfig struct {
	Duration time.Duration // How long to run at each concurrency level
	Warmup   time.Duration // Warmup period before measurement, not monitored
	Levels   []int         // Concurrency levels to test (default: [1,2,4,8])
	MaxProcs int           // GOMAXPROCS limit (0 = use runtime default)
}

// DefaultBenchConfig returns sensible defaults.
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{
		Duration: 2 * time.Second,
		Warmup:   200 * time.Millisecond,
		Levels:   []int{1, 2, 4, 8},
		MaxProcs: 0,
	}
}

// Run executes op at each concurrency level while m samples the lock, and
// returns one Result per level. m is stopped when Run returns.
func Run(ctx context.Context, m *Monitor, op Operation, cfg BenchConfig) ([]Result, error) {
	if cfg.MaxProcs > 0 {
		oldMaxProcs := runtime.GOMAXPROCS(cfg.MaxProcs)
		defer runtime.GOMAXPROCS(oldMaxProcs)
	}

	results := make([]Result, 0, len(cfg.Levels))

	for _, n := range cfg.Levels {
		if n <= 0 {
			return nil, fmt.Errorf("invalid concurrency level %d", n)
		}
		result, err := runAtLevel(ctx, m, op, n, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed at N=%d: %w", n, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// runAtLevel executes the operation with N concurrent workers.
func runAtLevel(ctx context.Context, m *Monitor, op Operation, n int, cfg BenchConfig) (Result, error) {
	if cfg.Warmup > 0 {
		warmupCtx, cancel := context.WithTimeout(ctx, cfg.Warmup)
		_ = runPhase(warmupCtx, op, n)
		cancel()
	}

	measureCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var result Result
	stats, err := m.Measure(measureCtx, func(ctx context.Context) error {
		result = runPhase(ctx, op, n)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result.Lock = stats
	result.Contention = stats.Ratio()
	return result, nil
}

// worker holds what one benchmark goroutine observed. Only its own goroutine
// writes to it, so no synchronization is needed until the phase ends.
type worker struct {
	ops       int64
	errs      int64
	latencies []time.Duration
	lockWaits []time.Duration
}

type workerKey struct{}

// Locked wraps op so that each call runs holding lock. When the wrapper runs
// under Run, the time each call spent queued for lock is reported in
// Result.LockWaits, separately from the end-to-end latency.
func Locked(lock ContextLock, op Operation) Operation {
	return func(ctx context.Context) error {
		queued := time.Now()
		if err := lock.LockContext(ctx); err != nil {
			return err
		}
		defer lock.Release()

		if w, ok := ctx.Value(workerKey{}).(*worker); ok {
			w.lockWaits = append(w.lockWaits, time.Since(queued))
		}
		return op(ctx)
	}
}

// runPhase runs N workers until ctx is done. A call that fails because the
// phase ended is not counted.
func runPhase(ctx context.Context, op Operation, n int) Result {
	var wg sync.WaitGroup
	workers := make([]worker, n)
	start := time.Now()

	for i := range workers {
		w := &workers[i]
		w.latencies = make([]time.Duration, 0, 1000)
		wctx := context.WithValue(ctx, workerKey{}, w)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for wctx.Err() == nil {
				opStart := time.Now()
				err := op(wctx)
				latency := time.Since(opStart)

				switch {
				case err == nil:
					w.ops++
					w.latencies = append(w.latencies, latency)
				case wctx.Err() == nil:
					w.errs++
				}
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	result := Result{N: n, Duration: elapsed}
	for _, w := range workers {
		result.Operations += w.ops
		result.Errors += w.errs
		result.Latencies = append(result.Latencies, w.latencies...)
		result.LockWaits = append(result.LockWaits, w.lockWaits...)
	}
	result.Throughput = float64(result.Operations) / elapsed.Seconds()
	return result
}

// CalculateStatistics summarizes the end-to-end latencies of result.
func CalculateStatistics(result Result) Statistics {
	return summarize(result.Latencies)
}

// LockWaitStatistics summarizes how long operations wrapped with Locked
// queued for the lock. Comparing it with CalculateStatistics shows how much
// of each operation's latency is spent waiting rather than working.
func LockWaitStatistics(result Result) Statistics {
	return summarize(result.LockWaits)
}

func summarize(samples []time.Duration) Statistics {
	if len(samples) == 0 {
		return Statistics{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	mean := sum / time.Duration(len(sorted))

	var variance float64
	for _, d := range sorted {
		diff := float64(d - mean)
		variance += diff * diff
	}

	at := func(pct int) time.Duration { return sorted[len(sorted)*pct/100] }
	return Statistics{
		Mean:   mean,
		Stddev: time.Duration(math.Sqrt(variance / float64(len(sorted)))),
		P50:    at(50),
		P95:    at(95),
		P99:    at(99),
		Max:    sorted[len(sorted)-1],
	}
}

// Speedup returns the throughput of each result relative to the first one.
// A lock-bound operation stays near 1.0 however many workers are added.
func Speedup(results []Result) []float64 {
	out := make([]float64, len(results))
	if len(results) == 0 || results[0].Throughput == 0 {
		return out
	}
	for i, r := range results {
		out[i] = r.Throughput / results[0].Throughput
	}
	return out
}
