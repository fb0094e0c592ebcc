package lockknock

import (
	"context"
	"time"
)

// ProbeResult describes one probe of the global lock.
type ProbeResult struct {
	Acquired bool          // Lock was obtained before the timeout
	Wait     time.Duration // Time spent waiting before acquisition (or giving up)
	Attempts int           // Acquisition attempts made; always 1 for a ContextLock
	Aborted  bool          // Stop was requested before the lock was obtained
}

// Probe knocks on lock and releases it as soon as it is acquired.
//
// A ContextLock is waited on once, for up to timeout, so the probe holds a
// single place in the lock's queue; closing stop cancels that wait. Any other
// GlobalLock is polled in attempts of at most poll each until the cumulative
// wait reaches timeout, and stop is checked between attempts. In both cases
// the wait observed so far is reported.
func Probe(lock GlobalLock, poll, timeout time.Duration, stop <-chan struct{}) ProbeResult {
	if cl, ok := lock.(ContextLock); ok {
		return waitOnce(cl, timeout, stop)
	}
	return pollAttempts(lock, poll, timeout, stop)
}

func waitOnce(lock ContextLock, timeout time.Duration, stop <-chan struct{}) ProbeResult {
	res := ProbeResult{Attempts: 1}
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if stop != nil {
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	err := lock.LockContext(ctx)
	res.Wait = time.Since(start)
	if err == nil {
		res.Acquired = true
		lock.Release()
		return res
	}

	select {
	case <-stop:
		res.Aborted = true
	default:
	}
	return res
}

func pollAttempts(lock GlobalLock, poll, timeout time.Duration, stop <-chan struct{}) ProbeResult {
	var res ProbeResult
	start := time.Now()

	for {
		remaining := timeout - time.Since(start)
		if remaining <= 0 {
			res.Wait = time.Since(start)
			return res
		}

		res.Attempts++
		if lock.TryAcquire(min(poll, remaining)) {
			res.Wait = time.Since(start)
			res.Acquired = true
			lock.Release()
			return res
		}

		select {
		case <-stop:
			res.Wait = time.Since(start)
			res.Aborted = true
			return res
		default:
		}
	}
}
