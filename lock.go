package lockknock

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// GlobalLock is the capability a host must expose for its process-wide
// exclusive execution lock. Both methods must be safe to call from the
// sampler goroutine.
type GlobalLock interface {
	// TryAcquire blocks for at most timeout waiting for the lock and reports
	// whether it was acquired.
	TryAcquire(timeout time.Duration) bool

	// Release unconditionally releases a lock obtained by TryAcquire.
	Release()
}

// ContextLock is a GlobalLock that can also wait under a context. Probe uses
// it to wait once for the whole timeout instead of polling, so a FIFO lock
// keeps the sampler's place in its queue.
type ContextLock interface {
	GlobalLock

	// LockContext blocks until the lock is held or ctx is done.
	LockContext(ctx context.Context) error
}

// BigLock is a single exclusive execution lock. Waiters are served in FIFO
// order. A waiter that gives up leaves the queue and rejoins at its back.
//
// BigLock implements sync.Locker for the code being measured and ContextLock
// for the monitor.
type BigLock struct {
	sem *semaphore.Weighted
}

// NewBigLock returns an unlocked BigLock.
func NewBigLock() *BigLock {
	return &BigLock{sem: semaphore.NewWeighted(1)}
}

var global = NewBigLock()

// Global returns the process-wide BigLock. Monitors built without WithLock
// probe this lock.
func Global() *BigLock {
	return global
}

// Lock blocks until the lock is held.
func (l *BigLock) Lock() {
	// Acquire with a background context only fails on cancellation.
	_ = l.sem.Acquire(context.Background(), 1)
}

// Unlock releases the lock. Unlocking an unlocked BigLock panics.
func (l *BigLock) Unlock() {
	l.sem.Release(1)
}

// LockContext blocks until the lock is held or ctx is done.
func (l *BigLock) LockContext(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryLock acquires the lock only if it is free right now.
func (l *BigLock) TryLock() bool {
	return l.sem.TryAcquire(1)
}

// TryAcquire implements GlobalLock.
func (l *BigLock) TryAcquire(timeout time.Duration) bool {
	if l.sem.TryAcquire(1) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.sem.Acquire(ctx, 1) == nil
}

// Release implements GlobalLock.
func (l *BigLock) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding the lock.
func (l *BigLock) Do(fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}
