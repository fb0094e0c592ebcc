package lockknock

import "errors"

var (
	// ErrInvalidConfiguration is returned when a Config has a non-positive
	// interval or timeout. It is reported at construction, never while sampling.
	ErrInvalidConfiguration = errors.New("lockknock: invalid configuration")

	// ErrSamplerFailed is reported by Monitor.Err when the sampler goroutine
	// terminated unexpectedly.
	ErrSamplerFailed = errors.New("lockknock: sampler failed")
)
