package metrics

import (
	"sync"

	"github.com/jkaberg/saj-hass/internal/saj"
	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements prometheus.Collector for the latest inverter snapshot
type Collector struct {
	host string

	mu          sync.RWMutex
	latest      *sensors.Snapshot
	lastOutcome saj.Outcome
	observed    bool

	reads *prometheus.CounterVec

	// Metrics
	sensorValue   *prometheus.Desc
	lastUpdated   *prometheus.Desc
	state         *prometheus.Desc
	online        *prometheus.Desc
	scrapeSuccess *prometheus.Desc
}

// NewCollector creates a new SAJ collector for the inverter at host
func NewCollector(host string) *Collector {
	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saj_reads_total",
		Help: "Inverter reads by outcome",
	}, []string{"outcome"})
	for _, o := range saj.Outcomes() {
		reads.WithLabelValues(o.String())
	}

	return &Collector{
		host:  host,
		reads: reads,
		sensorValue: prometheus.NewDesc(
			"saj_sensor_value",
			"Last decoded value of a numeric inverter sensor",
			[]string{"host", "name", "key", "unit"},
			nil,
		),
		lastUpdated: prometheus.NewDesc(
			"saj_sensor_last_updated_seconds",
			"Unix time the sensor was last decoded",
			[]string{"host", "name"},
			nil,
		),
		state: prometheus.NewDesc(
			"saj_inverter_state",
			"Operating state of the inverter (1 for the current state)",
			[]string{"host", "state"},
			nil,
		),
		online: prometheus.NewDesc(
			"saj_inverter_online",
			"Whether the inverter answered the last read (0 at night is normal)",
			[]string{"host"},
			nil,
		),
		scrapeSuccess: prometheus.NewDesc(
			"saj_read_success",
			"Whether the last read decoded successfully",
			[]string{"host"},
			nil,
		),
	}
}

// Observe records a read result and, for successful reads, the snapshot taken
// after applying it.
func (c *Collector) Observe(res saj.Result, snap *sensors.Snapshot) {
	c.reads.WithLabelValues(res.Outcome.String()).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOutcome = res.Outcome
	c.observed = true
	if res.OK() && snap != nil {
		c.latest = snap
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.reads.Describe(ch)
	ch <- c.sensorValue
	ch <- c.lastUpdated
	ch <- c.state
	ch <- c.online
	ch <- c.scrapeSuccess
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.reads.Collect(ch)

	c.mu.RLock()
	latest, outcome, observed := c.latest, c.lastOutcome, c.observed
	c.mu.RUnlock()

	if !observed {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.online, prometheus.GaugeValue, boolToFloat(outcome != saj.Offline), c.host)
	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, boolToFloat(outcome == saj.Success), c.host)

	if latest == nil {
		return
	}
	for _, s := range latest.Sensors {
		if !s.HasValue {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.lastUpdated, prometheus.GaugeValue, float64(s.LastUpdated.Unix()), c.host, s.Name)

		if s.Key == sensors.StateKey {
			c.collectState(ch, s.Value)
			continue
		}
		if f, ok := s.Value.Float64(); ok {
			ch <- prometheus.MustNewConstMetric(c.sensorValue, prometheus.GaugeValue, f, c.host, s.Name, s.Key, s.Unit)
		}
	}
}

// collectState emits one series per known state so dashboards can stack
// them. XML firmware reports the raw code, CSV firmware the name.
func (c *Collector) collectState(ch chan<- prometheus.Metric, v sensors.Value) {
	current := v.String()
	if name, err := sensors.StateName(current); err == nil {
		current = name
	}
	for _, name := range sensors.StateNames() {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, boolToFloat(name == current), c.host, name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
