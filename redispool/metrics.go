package redispool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports Stats of pool as Prometheus metrics.
// Metrics are labeled with pool name.
type Collector struct {
	pool *Pool

	active     *prometheus.Desc
	idle       *prometheus.Desc
	dials      *prometheus.Desc
	dialErrors *prometheus.Desc
	waits      *prometheus.Desc
	discarded  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns collector for pool. Register it with prometheus.Registerer.
func NewCollector(pool *Pool, name string) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("respipe", "pool", metric), help, nil, labels)
	}
	return &Collector{
		pool:       pool,
		active:     desc("active_connections", "Number of borrowed connections."),
		idle:       desc("idle_connections", "Number of idle connections."),
		dials:      desc("dials_total", "Number of established connections."),
		dialErrors: desc("dial_errors_total", "Number of failed dials."),
		waits:      desc("waits_total", "Number of borrows that waited for free slot."),
		discarded:  desc("discarded_total", "Number of connections closed instead of reuse."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.idle
	ch <- c.dials
	ch <- c.dialErrors
	ch <- c.waits
	ch <- c.discarded
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(st.Active))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(st.Idle))
	ch <- prometheus.MustNewConstMetric(c.dials, prometheus.CounterValue, float64(st.Dials))
	ch <- prometheus.MustNewConstMetric(c.dialErrors, prometheus.CounterValue, float64(st.DialErrors))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(st.Waits))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(st.Discarded))
}
