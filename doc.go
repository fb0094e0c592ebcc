// Package lockknock estimates how contended a process-wide exclusive lock is.
//
// # Overview
//
// Many systems serialize part of their work on one big lock: an interpreter
// lock, a global state mutex, a single-writer section. lockknock measures
// what fraction of wall-clock time such a lock is contended, so you can tell
// empirically whether a section of code is lock-bound (extra goroutines
// just queue) or largely lock-free (extra goroutines run in parallel).
//
// A background goroutine periodically knocks on the lock: it tries to acquire
// it with a bounded wait and releases it immediately. Time spent waiting is
// contention any other goroutine would have seen at that moment. Locks that
// implement ContextLock, such as BigLock, are waited on once per knock so the
// knock keeps its place in the queue.
//
//	contention = Σ wait / Σ cycle time
//
// # Architecture
//
//   - lock.go        - GlobalLock capability and the process-wide BigLock
//   - probe.go       - one bounded knock on the lock
//   - accumulator.go - busy/total counters with tear-free reads
//   - sampler.go     - the background sampling loop
//   - monitor.go     - lifecycle: Start, Stop, Reset, metric accessors
//   - metrics.go     - Prometheus collector
//   - benchmark.go   - contention and throughput per concurrency level
//   - assertions.go  - test helpers for lock-bound / lock-free properties
//
// # Quick Start
//
//	m, err := lockknock.NewMonitor(lockknock.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	m.Start()
//	doWork() // takes lockknock.Global() around its exclusive sections
//	m.Stop()
//
//	fmt.Printf("Contention: %.2f\n", m.ContentionMetric())
//
// # Configuration
//
// Three values control sampling:
//
//   - PollingInterval:  bound on each attempt when a lock has to be polled
//   - SamplingInterval: sleep between probes (default 10x polling)
//   - Timeout:          bound on the total wait of one probe
//
// Smaller intervals sample more often and are more accurate, at the cost of
// injecting more competition for the lock being measured. The metric is a
// sampling approximation, not an unbiased estimator.
//
// # Lifecycle
//
//	Idle --Start--> Running --Stop--> Stopped
//
// Stop is idempotent and blocks until the sampler has exited, so the metric
// is frozen once it returns. Start on a running Monitor is a no-op; Start on
// a stopped one resumes sampling on top of the existing counters.
//
// # Testing
//
//	func TestParse(t *testing.T) {
//	    cfg := lockknock.DefaultAssertionConfig()
//	    lockknock.AssertLockFree(t, lockknock.Global(), cfg, func(ctx context.Context) error {
//	        return parseAll(ctx)
//	    })
//	}
package lockknock
