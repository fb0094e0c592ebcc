package lockknock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Monitor.
type State int32

const (
	StateIdle    State = iota // Constructed, never started
	StateRunning              // Sampler goroutine active
	StateStopped              // Stopped by the caller or by a sampler failure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLock sets the lock to probe. The default is Global().
func WithLock(lock GlobalLock) Option {
	return func(m *Monitor) {
		m.lock = lock
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor estimates how contended a global lock is by periodically knocking
// on it from a background goroutine.
//
// Lifecycle:
//
//	Idle --Start--> Running --Stop--> Stopped --Start--> Running ...
//
// Start on a running Monitor and Stop on a non-running one are no-ops.
// Counters persist across a restart unless ResetContentionMetric is called.
type Monitor struct {
	cfg    Config
	lock   GlobalLock
	logger *slog.Logger
	acc    *Accumulator

	mu      sync.Mutex // serializes Start/Stop
	sampler *sampler

	state   atomic.Int32
	failure atomic.Pointer[error]
}

// NewMonitor validates cfg and returns an Idle Monitor.
func NewMonitor(cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:    cfg,
		lock:   Global(),
		logger: slog.Default(),
		acc:    NewAccumulator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.lock == nil {
		return nil, fmt.Errorf("%w: nil lock", ErrInvalidConfiguration)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// Config returns the configuration the Monitor was built with.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start spawns the sampler goroutine. It is a no-op while running.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if State(m.state.Load()) == StateRunning {
		return nil
	}

	// Reap a sampler that died on its own.
	if m.sampler != nil {
		<-m.sampler.done
		m.sampler = nil
	}

	m.failure.Store(nil)
	s := newSampler(m.cfg, m.lock, m.acc, m.logger, m.fail)
	m.sampler = s
	m.state.Store(int32(StateRunning))
	go s.run()

	m.logger.Info("contention monitor started",
		"polling", m.cfg.PollingInterval,
		"sampling", m.cfg.SamplingInterval,
		"timeout", m.cfg.Timeout)
	return nil
}

// Stop signals the sampler to exit and waits until it has. No counter is
// updated after Stop returns. Stop is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sampler
	if s == nil {
		return
	}
	close(s.stop)
	<-s.done
	m.sampler = nil

	wasRunning := State(m.state.Swap(int32(StateStopped))) == StateRunning
	if wasRunning {
		m.logger.Info("contention monitor stopped", "contention", m.ContentionMetric())
	}
}

// Close stops the Monitor. It always returns nil.
func (m *Monitor) Close() error {
	m.Stop()
	return nil
}

// fail records a sampler failure and freezes the Monitor.
func (m *Monitor) fail(err error) {
	m.failure.Store(&err)
	m.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
}

// Err returns the error that terminated the sampler, if any.
func (m *Monitor) Err() error {
	if p := m.failure.Load(); p != nil {
		return *p
	}
	return nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// IsRunning reports whether the sampler is active.
func (m *Monitor) IsRunning() bool {
	return m.State() == StateRunning
}

// ContentionMetric returns the fraction of monitored time spent waiting on
// the lock, in [0,1]. Safe to call at any time from any goroutine.
func (m *Monitor) ContentionMetric() float64 {
	return m.acc.Ratio()
}

// Stats returns the raw counters behind ContentionMetric.
func (m *Monitor) Stats() Stats {
	return m.acc.Snapshot()
}

// ResetContentionMetric zeroes the counters. A running Monitor keeps
// accumulating from zero; a stopped one stays stopped.
func (m *Monitor) ResetContentionMetric() {
	m.acc.Reset()
	m.logger.Debug("contention metric reset", "state", m.State())
}

// Measure resets the counters, runs fn with the Monitor running and returns
// the counters of that session. The Monitor is stopped on return.
func (m *Monitor) Measure(ctx context.Context, fn func(ctx context.Context) error) (Stats, error) {
	m.Stop()
	m.ResetContentionMetric()
	if err := m.Start(); err != nil {
		return Stats{}, err
	}

	err := fn(ctx)
	m.Stop()

	if failure := m.Err(); failure != nil {
		return m.Stats(), failure
	}
	return m.Stats(), err
}
