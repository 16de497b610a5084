package api

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"namereg/internal/errors"
	"namereg/internal/version"
)

// MetricsCollector collects and exposes Prometheus metrics
type MetricsCollector struct {
	httpRequests         *Counter
	registrations        *Counter
	registrationFailures *Counter
	rateLimitExceeded    *Counter

	registrationDuration *Histogram

	poolConns     *Gauge
	poolWaitCount *Gauge
	runnerQueue   *Gauge
	runnerRunning *Gauge
	runnerTasks   *Gauge
	goroutines    *Gauge

	startTime time.Time
}

// Counter is a monotonically increasing counter
type Counter struct {
	name   string
	help   string
	labels []string
	values sync.Map // map[string]*uint64
}

// Histogram tracks distributions of values
type Histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64
	values  sync.Map // map[string]*histogramValue
}

type histogramValue struct {
	mu      sync.Mutex
	sum     float64
	count   uint64
	buckets []uint64
}

// Gauge is a metric that can go up and down
type Gauge struct {
	name   string
	help   string
	labels []string
	values sync.Map // map[string]*float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequests: &Counter{
			name:   "namereg_http_requests_total",
			help:   "Total number of HTTP requests by status code",
			labels: []string{"code"},
		},
		registrations: &Counter{
			name:   "namereg_registrations_total",
			help:   "Total number of registrations by strategy and result",
			labels: []string{"strategy", "result"},
		},
		registrationFailures: &Counter{
			name:   "namereg_registration_failures_total",
			help:   "Total number of failed registrations by error code",
			labels: []string{"code"},
		},
		rateLimitExceeded: &Counter{
			name: "namereg_ratelimit_exceeded_total",
			help: "Total number of requests rejected by the rate limiter",
		},
		registrationDuration: &Histogram{
			name:    "namereg_registration_duration_seconds",
			help:    "Duration of the registration sequence in seconds",
			labels:  []string{"strategy"},
			buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		poolConns: &Gauge{
			name:   "namereg_pool_connections",
			help:   "Pooled database connections by state",
			labels: []string{"state"},
		},
		poolWaitCount: &Gauge{
			name: "namereg_pool_wait_count",
			help: "Total number of acquisitions that had to wait for a connection",
		},
		runnerQueue: &Gauge{
			name:   "namereg_runner_queue",
			help:   "Offload queue length and capacity",
			labels: []string{"kind"},
		},
		runnerRunning: &Gauge{
			name: "namereg_runner_running",
			help: "Tasks currently executing on offload workers",
		},
		runnerTasks: &Gauge{
			name:   "namereg_runner_tasks",
			help:   "Tasks finished by offload workers by outcome",
			labels: []string{"outcome"},
		},
		goroutines: &Gauge{
			name: "namereg_goroutines",
			help: "Number of goroutines",
		},
		startTime: time.Now(),
	}
}

// RecordRequest counts one HTTP response.
func (m *MetricsCollector) RecordRequest(status int) {
	m.httpRequests.Inc(strconv.Itoa(status))
}

// RecordRegistration records the outcome of one registration.
func (m *MetricsCollector) RecordRegistration(strategy string, duration time.Duration, err error) {
	m.registrationDuration.Observe(duration.Seconds(), strategy)
	if err != nil {
		m.registrations.Inc(strategy, "failure")
		m.registrationFailures.Inc(string(errors.CodeOf(err)))
		return
	}
	m.registrations.Inc(strategy, "success")
}

// RecordRateLimitExceeded records a rejected request.
func (m *MetricsCollector) RecordRateLimitExceeded() {
	m.rateLimitExceeded.Inc()
}

// WritePrometheus writes metrics in Prometheus text format
func (m *MetricsCollector) WritePrometheus(w io.Writer) {
	m.goroutines.Set(float64(runtime.NumGoroutine()))

	fmt.Fprintf(w, "# HELP namereg_info Build information\n")
	fmt.Fprintf(w, "# TYPE namereg_info gauge\n")
	fmt.Fprintf(w, "namereg_info{version=%q} 1\n\n", version.Version)

	fmt.Fprintf(w, "# HELP namereg_uptime_seconds Time since the server started\n")
	fmt.Fprintf(w, "# TYPE namereg_uptime_seconds counter\n")
	fmt.Fprintf(w, "namereg_uptime_seconds %.3f\n\n", time.Since(m.startTime).Seconds())

	m.writeCounter(w, m.httpRequests)
	m.writeCounter(w, m.registrations)
	m.writeCounter(w, m.registrationFailures)
	m.writeCounter(w, m.rateLimitExceeded)

	m.writeHistogram(w, m.registrationDuration)

	m.writeGauge(w, m.poolConns)
	m.writeGauge(w, m.poolWaitCount)
	m.writeGauge(w, m.runnerQueue)
	m.writeGauge(w, m.runnerRunning)
	m.writeGauge(w, m.runnerTasks)
	m.writeGauge(w, m.goroutines)
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

func (m *MetricsCollector) writeCounter(w io.Writer, c *Counter) {
	fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(w, "# TYPE %s counter\n", c.name)

	for _, key := range sortedKeys(&c.values) {
		val, _ := c.values.Load(key)
		fmt.Fprintf(w, "%s%s %d\n", c.name, key, atomic.LoadUint64(val.(*uint64)))
	}
	fmt.Fprintln(w)
}

func (m *MetricsCollector) writeHistogram(w io.Writer, h *Histogram) {
	fmt.Fprintf(w, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(w, "# TYPE %s histogram\n", h.name)

	for _, key := range sortedKeys(&h.values) {
		val, _ := h.values.Load(key)
		hv := val.(*histogramValue)

		hv.mu.Lock()
		cumulative := uint64(0)
		for i, bound := range h.buckets {
			cumulative += hv.buckets[i]
			fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLabel(key, "le", strconv.FormatFloat(bound, 'g', -1, 64)), cumulative)
		}
		cumulative += hv.buckets[len(h.buckets)]
		fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLabel(key, "le", "+Inf"), cumulative)
		fmt.Fprintf(w, "%s_sum%s %.6f\n", h.name, key, hv.sum)
		fmt.Fprintf(w, "%s_count%s %d\n", h.name, key, hv.count)
		hv.mu.Unlock()
	}
	fmt.Fprintln(w)
}

func (m *MetricsCollector) writeGauge(w io.Writer, g *Gauge) {
	fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", g.name)

	for _, key := range sortedKeys(&g.values) {
		val, _ := g.values.Load(key)
		fmt.Fprintf(w, "%s%s %s\n", g.name, key, strconv.FormatFloat(*val.(*float64), 'g', -1, 64))
	}
	fmt.Fprintln(w)
}

// Inc adds one to the series identified by labelValues.
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add adds delta to the series identified by labelValues.
func (c *Counter) Add(delta uint64, labelValues ...string) {
	key := labelsToKey(c.labels, labelValues)
	val, _ := c.values.LoadOrStore(key, new(uint64))
	atomic.AddUint64(val.(*uint64), delta)
}

// Value returns the current count of a series.
func (c *Counter) Value(labelValues ...string) uint64 {
	val, ok := c.values.Load(labelsToKey(c.labels, labelValues))
	if !ok {
		return 0
	}
	return atomic.LoadUint64(val.(*uint64))
}

// Observe records value in the series identified by labelValues.
func (h *Histogram) Observe(value float64, labelValues ...string) {
	key := labelsToKey(h.labels, labelValues)
	val, _ := h.values.LoadOrStore(key, &histogramValue{
		buckets: make([]uint64, len(h.buckets)+1), // +1 for +Inf
	})
	hv := val.(*histogramValue)

	hv.mu.Lock()
	defer hv.mu.Unlock()

	hv.sum += value
	hv.count++

	idx := len(h.buckets)
	for i, bound := range h.buckets {
		if value <= bound {
			idx = i
			break
		}
	}
	hv.buckets[idx]++
}

// Set replaces the value of the series identified by labelValues.
func (g *Gauge) Set(value float64, labelValues ...string) {
	ptr := new(float64)
	*ptr = value
	g.values.Store(labelsToKey(g.labels, labelValues), ptr)
}

func labelsToKey(labels, values []string) string {
	if len(labels) == 0 || len(values) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(labels))
	for i, label := range labels {
		if i < len(values) {
			pairs = append(pairs, fmt.Sprintf("%s=%q", label, values[i]))
		}
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func withLabel(key, label, value string) string {
	pair := fmt.Sprintf("%s=%q", label, value)
	if key == "" {
		return "{" + pair + "}"
	}
	return key[:len(key)-1] + "," + pair + "}"
}

// handleMetrics refreshes the pool and runner gauges and writes every metric.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.metrics

	ps := s.db.Stats()
	m.poolConns.Set(float64(ps.MaxOpen), "max_open")
	m.poolConns.Set(float64(ps.Open), "open")
	m.poolConns.Set(float64(ps.InUse), "in_use")
	m.poolConns.Set(float64(ps.Idle), "idle")
	m.poolWaitCount.Set(float64(ps.WaitCount))

	if s.runner != nil {
		rs := s.runner.Stats()
		m.runnerQueue.Set(float64(rs.QueueLength), "length")
		m.runnerQueue.Set(float64(rs.QueueCapacity), "capacity")
		m.runnerRunning.Set(float64(rs.Running))
		m.runnerTasks.Set(float64(rs.Processed), "processed")
		m.runnerTasks.Set(float64(rs.Failed), "failed")
		m.runnerTasks.Set(float64(rs.Panicked), "panicked")
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	m.WritePrometheus(w)
}
