package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsClient is the narrow metrics surface the coordinator uses: per-stage
// counters, durations, and gauges. It mirrors the shape of the teacher's
// observability.MetricsClient (pkg/observability/interfaces.go) trimmed to the
// operations this module actually calls.
type MetricsClient interface {
	RecordCounter(name string, value float64, labels map[string]string)
	RecordGauge(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	RecordOperation(component, operation string, success bool, durationSeconds float64, labels map[string]string)
	StartTimer(name string, labels map[string]string) func()
	Close() error
}

// PrometheusMetricsClient implements MetricsClient on top of
// client_golang/prometheus, grounded on
// pkg/observability/prometheus_metrics.go's lazily-registered vector pattern.
type PrometheusMetricsClient struct {
	namespace string
	subsystem string

	mu         sync.RWMutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetricsClient creates a client under the given namespace and
// subsystem (e.g. "ragcoordinator", "cache").
func NewPrometheusMetricsClient(namespace, subsystem string) *PrometheusMetricsClient {
	return &PrometheusMetricsClient{
		namespace:  namespace,
		subsystem:  subsystem,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (c *PrometheusMetricsClient) counterFor(name string, labels map[string]string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.counters[name]
	if !ok {
		v = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		prometheus.MustRegister(v)
		c.counters[name] = v
	}
	return v
}

func (c *PrometheusMetricsClient) gaugeFor(name string, labels map[string]string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.gauges[name]
	if !ok {
		v = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		prometheus.MustRegister(v)
		c.gauges[name] = v
	}
	return v
}

func (c *PrometheusMetricsClient) histogramFor(name string, labels map[string]string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.histograms[name]
	if !ok {
		v = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: c.subsystem,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		}, labelNames(labels))
		prometheus.MustRegister(v)
		c.histograms[name] = v
	}
	return v
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (c *PrometheusMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {
	c.counterFor(name, labels).With(labels).Add(value)
}

func (c *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	c.gaugeFor(name, labels).With(labels).Set(value)
}

func (c *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	c.histogramFor(name, labels).With(labels).Observe(value)
}

func (c *PrometheusMetricsClient) RecordOperation(component, operation string, success bool, durationSeconds float64, labels map[string]string) {
	merged := make(map[string]string, len(labels)+3)
	for k, v := range labels {
		merged[k] = v
	}
	merged["component"] = component
	merged["operation"] = operation
	merged["success"] = boolLabel(success)
	c.RecordHistogram("operation_duration_seconds", durationSeconds, merged)
}

func (c *PrometheusMetricsClient) StartTimer(name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		c.RecordHistogram(name, time.Since(start).Seconds(), labels)
	}
}

func (c *PrometheusMetricsClient) Close() error { return nil }

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// NoopMetricsClient discards everything; used in tests and CLI dry-runs.
type NoopMetricsClient struct{}

func (NoopMetricsClient) RecordCounter(string, float64, map[string]string)   {}
func (NoopMetricsClient) RecordGauge(string, float64, map[string]string)    {}
func (NoopMetricsClient) RecordHistogram(string, float64, map[string]string) {}
func (NoopMetricsClient) RecordOperation(string, string, bool, float64, map[string]string) {
}
func (NoopMetricsClient) StartTimer(string, map[string]string) func() { return func() {} }
func (NoopMetricsClient) Close() error                                 { return nil }
