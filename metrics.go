package lockknock

import "github.com/prometheus/client_golang/prometheus"

// Collector exports a Monitor's counters as Prometheus metrics. Values are
// read from one Stats snapshot per scrape.
type Collector struct {
	monitor *Monitor

	ratio    *prometheus.Desc
	busy     *prometheus.Desc
	total    *prometheus.Desc
	probes   *prometheus.Desc
	timeouts *prometheus.Desc
	running  *prometheus.Desc
}

// NewCollector returns a Collector for m. namespace prefixes every metric
// name; constLabels are attached to all of them.
func NewCollector(m *Monitor, namespace string, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	return &Collector{
		monitor:  m,
		ratio:    desc("contention_ratio", "Fraction of monitored time spent waiting on the global lock."),
		busy:     desc("busy_seconds_total", "Time spent waiting to acquire the global lock."),
		total:    desc("monitored_seconds_total", "Wall-clock time covered by completed sampling cycles."),
		probes:   desc("probes_total", "Completed lock probes."),
		timeouts: desc("probe_timeouts_total", "Lock probes that gave up before acquiring the lock."),
		running:  desc("running", "1 while the sampler is active."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ratio
	ch <- c.busy
	ch <- c.total
	ch <- c.probes
	ch <- c.timeouts
	ch <- c.running
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.monitor.Stats()

	running := 0.0
	if c.monitor.IsRunning() {
		running = 1
	}

	ch <- prometheus.MustNewConstMetric(c.ratio, prometheus.GaugeValue, s.Ratio())
	ch <- prometheus.MustNewConstMetric(c.busy, prometheus.CounterValue, s.Busy.Seconds())
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, s.Total.Seconds())
	ch <- prometheus.MustNewConstMetric(c.probes, prometheus.CounterValue, float64(s.Probes))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
}
