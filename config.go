package lockknock

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls how the global lock is sampled.
type Config struct {
	PollingInterval  time.Duration // Bound on each attempt at a lock that must be polled
	SamplingInterval time.Duration // Sleep between probes, outside the lock
	Timeout          time.Duration // Bound on the total wait of one probe
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollingInterval:  time.Millisecond,
		SamplingInterval: 10 * time.Millisecond,
		Timeout:          time.Second,
	}
}

// maxMicros is the largest microsecond count a time.Duration can hold.
const maxMicros = math.MaxInt64 / int64(time.Microsecond)

// ConfigFromUnits builds a Config from integer microseconds and fractional
// seconds. A negative samplingMicros selects the default of ten polling
// intervals. Values too large to express as a time.Duration are rejected
// with ErrInvalidConfiguration; the result is otherwise not validated.
func ConfigFromUnits(pollingMicros, samplingMicros int64, timeoutSecs float64) (Config, error) {
	if pollingMicros > maxMicros || pollingMicros < -maxMicros {
		return Config{}, fmt.Errorf("%w: polling interval of %dµs out of range", ErrInvalidConfiguration, pollingMicros)
	}
	if samplingMicros > maxMicros {
		return Config{}, fmt.Errorf("%w: sampling interval of %dµs out of range", ErrInvalidConfiguration, samplingMicros)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	timeoutNanos := timeoutSecs * float64(time.Second)
	if math.IsNaN(timeoutNanos) || math.Abs(timeoutNanos) >= float64(math.MaxInt64) {
		return Config{}, fmt.Errorf("%w: timeout of %vs out of range", ErrInvalidConfiguration, timeoutSecs)
	}

	polling := time.Duration(pollingMicros) * time.Microsecond
	sampling := time.Duration(samplingMicros) * time.Microsecond
	if samplingMicros < 0 {
		if polling > math.MaxInt64/10 {
			return Config{}, fmt.Errorf("%w: default sampling interval of 10x %v out of range", ErrInvalidConfiguration, polling)
		}
		sampling = 10 * polling
	}
	return Config{
		PollingInterval:  polling,
		SamplingInterval: sampling,
		Timeout:          time.Duration(timeoutNanos),
	}, nil
}

// Validate reports a configuration that cannot be sampled with.
func (c Config) Validate() error {
	if c.PollingInterval <= 0 {
		return fmt.Errorf("%w: polling interval must be positive, got %v", ErrInvalidConfiguration, c.PollingInterval)
	}
	if c.SamplingInterval < 0 {
		return fmt.Errorf("%w: sampling interval must not be negative, got %v", ErrInvalidConfiguration, c.SamplingInterval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfiguration, c.Timeout)
	}
	if c.PollingInterval >= c.Timeout {
		return fmt.Errorf("%w: polling interval (%v) must be less than timeout (%v)",
			ErrInvalidConfiguration, c.PollingInterval, c.Timeout)
	}
	return nil
}

// fileConfig is the on-disk layout read by LoadConfig.
type fileConfig struct {
	PollingIntervalMicros  int64   `yaml:"polling_interval_micros"`
	SamplingIntervalMicros *int64  `yaml:"sampling_interval_micros"`
	TimeoutSecs            float64 `yaml:"timeout_secs"`
}

// LoadConfig reads a YAML file of the form
//
//	polling_interval_micros: 1000
//	sampling_interval_micros: 10000 # optional, defaults to 10x polling
//	timeout_secs: 1
//
// Keys that are absent keep their DefaultConfig value. The result is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML as LoadConfig does.
func ParseConfig(data []byte) (Config, error) {
	def := DefaultConfig()
	fc := fileConfig{
		PollingIntervalMicros: def.PollingInterval.Microseconds(),
		TimeoutSecs:           def.Timeout.Seconds(),
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	sampling := int64(-1)
	if fc.SamplingIntervalMicros != nil {
		sampling = *fc.SamplingIntervalMicros
	}

	cfg, err := ConfigFromUnits(fc.PollingIntervalMicros, sampling, fc.TimeoutSecs)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
