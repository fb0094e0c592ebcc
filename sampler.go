package lockknock

import (
	"fmt"
	"log/slog"
	"time"
)

// sampler drives Probe at the configured cadence for one Running session.
type sampler struct {
	cfg    Config
	lock   GlobalLock
	acc    *Accumulator
	logger *slog.Logger

	stop chan struct{}
	done chan struct{}

	// onFailure is called with the recovered panic value if the loop dies.
	onFailure func(error)
}

func newSampler(cfg Config, lock GlobalLock, acc *Accumulator, logger *slog.Logger, onFailure func(error)) *sampler {
	return &sampler{
		cfg:       cfg,
		lock:      lock,
		acc:       acc,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		onFailure: onFailure,
	}
}

// run is the sampler goroutine body. It returns once stop is closed.
func (s *sampler) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrSamplerFailed, r)
			s.logger.Error("sampler terminated", "error", err)
			s.onFailure(err)
		}
	}()

	var timer *time.Timer
	if s.cfg.SamplingInterval > 0 {
		timer = time.NewTimer(s.cfg.SamplingInterval)
		defer timer.Stop()
	}

	cycleStart := time.Now()
	for {
		// Sleep outside the lock.
		if timer != nil {
			select {
			case <-s.stop:
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-s.stop:
				return
			default:
			}
		}

		res := Probe(s.lock, s.cfg.PollingInterval, s.cfg.Timeout, s.stop)
		now := time.Now()
		s.acc.Add(res.Wait, now.Sub(cycleStart), !res.Acquired && !res.Aborted)
		cycleStart = now

		if !res.Acquired && !res.Aborted {
			s.logger.Debug("probe timed out", "wait", res.Wait, "attempts", res.Attempts)
		}
		if res.Aborted {
			return
		}

		if timer != nil {
			timer.Reset(s.cfg.SamplingInterval)
		}
	}
}
