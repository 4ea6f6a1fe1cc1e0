package observe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Units fixed by the convenience constructors.
const (
	UnitCount = "count"
	UnitMs    = "ms"
	UnitGauge = "gauge"
)

// Sample is one recorded metric observation.
type Sample struct {
	Name      string
	Value     float64
	Unit      string
	Timestamp time.Time
	Tags      map[string]string
}

// Aggregate is the per-(name, unit) summary computed by a flush.
type Aggregate struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit,omitempty"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Exporter receives the samples drained by a flush. It is the injection
// point for a metrics backend; the collector guarantees only aggregation
// math and atomic draining.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: export is best-effort and must not panic.
type Exporter interface {
	Export(ctx context.Context, samples []Sample)
}

// CollectorConfig configures the metrics collector.
type CollectorConfig struct {
	// BatchSize is the buffer length that triggers a synchronous flush.
	// Default: 100
	BatchSize int

	// FlushInterval is the period of the background flush.
	// Default: 60 seconds
	FlushInterval time.Duration
}

// MetricsCollector accumulates metric samples in memory and flushes them in
// bounded batches, either when the buffer reaches BatchSize or on a periodic
// timer. Flushing drains the buffer atomically: no sample is both flushed
// and left in the live buffer.
type MetricsCollector struct {
	logger   *Logger
	exporter Exporter
	config   CollectorConfig

	mu     sync.Mutex
	buffer []Sample

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMetricsCollector creates a collector. A nil exporter disables the
// downstream backend; aggregates are still logged. Call Start to enable the
// periodic flush and Close to stop it.
func NewMetricsCollector(config CollectorConfig, logger *Logger, exporter Exporter) *MetricsCollector {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 60 * time.Second
	}

	return &MetricsCollector{
		logger:   logger,
		exporter: exporter,
		config:   config,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic flush. Idempotent.
func (c *MetricsCollector) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.config.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Flush()
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the periodic flush and drains any buffered samples. Idempotent.
func (c *MetricsCollector) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	if c.started.Load() {
		<-c.done
	}
	c.Flush()
}

// Record appends a sample to the buffer, defaulting its timestamp to now.
// Reaching the configured batch size triggers exactly one synchronous flush.
func (c *MetricsCollector) Record(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	var drained []Sample
	c.mu.Lock()
	c.buffer = append(c.buffer, s)
	if len(c.buffer) >= c.config.BatchSize {
		drained = c.buffer
		c.buffer = nil
	}
	c.mu.Unlock()

	if drained != nil {
		c.publish(drained)
	}
}

// Counter records a count sample.
func (c *MetricsCollector) Counter(name string, value float64, tags map[string]string) {
	c.Record(Sample{Name: name, Value: value, Unit: UnitCount, Tags: tags})
}

// Incr records a count sample of one.
func (c *MetricsCollector) Incr(name string, tags map[string]string) {
	c.Counter(name, 1, tags)
}

// Timing records a duration sample in milliseconds.
func (c *MetricsCollector) Timing(name string, durationMs float64, tags map[string]string) {
	c.Record(Sample{Name: name, Value: durationMs, Unit: UnitMs, Tags: tags})
}

// Gauge records a point-in-time value sample.
func (c *MetricsCollector) Gauge(name string, value float64, tags map[string]string) {
	c.Record(Sample{Name: name, Value: value, Unit: UnitGauge, Tags: tags})
}

// Flush atomically drains the buffer and publishes the drained samples.
// A flush on an empty buffer is a no-op; Flush never fails.
func (c *MetricsCollector) Flush() {
	c.mu.Lock()
	drained := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	c.publish(drained)
}

func (c *MetricsCollector) publish(samples []Sample) {
	if len(samples) == 0 {
		return
	}

	aggregates := aggregate(samples)
	c.logger.Debug("metrics flush", &Context{Extra: map[string]any{
		"samples":    len(samples),
		"aggregates": aggregates,
	}})

	if c.exporter != nil {
		c.exporter.Export(context.Background(), samples)
	}
}

// aggregate groups samples by (name, unit) and computes count, sum, min and
// max per group, preserving first-seen order.
func aggregate(samples []Sample) []Aggregate {
	index := make(map[string]int, len(samples))
	aggregates := make([]Aggregate, 0, len(samples))

	for _, s := range samples {
		key := s.Name + "\x00" + s.Unit
		i, ok := index[key]
		if !ok {
			index[key] = len(aggregates)
			aggregates = append(aggregates, Aggregate{
				Name:  s.Name,
				Unit:  s.Unit,
				Count: 1,
				Sum:   s.Value,
				Min:   s.Value,
				Max:   s.Value,
			})
			continue
		}
		a := &aggregates[i]
		a.Count++
		a.Sum += s.Value
		if s.Value < a.Min {
			a.Min = s.Value
		}
		if s.Value > a.Max {
			a.Max = s.Value
		}
	}

	return aggregates
}

// OTelExporter forwards drained samples to OpenTelemetry instruments:
// count samples to counters, ms samples to histograms, everything else to
// gauges. Instruments are created lazily per metric name.
type OTelExporter struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTelExporter creates an exporter recording onto the given meter.
func NewOTelExporter(meter metric.Meter) *OTelExporter {
	return &OTelExporter{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (e *OTelExporter) Export(ctx context.Context, samples []Sample) {
	for _, s := range samples {
		opt := metric.WithAttributes(tagAttributes(s.Tags)...)
		switch s.Unit {
		case UnitCount:
			if inst := e.counter(s.Name); inst != nil {
				inst.Add(ctx, s.Value, opt)
			}
		case UnitMs:
			if inst := e.histogram(s.Name); inst != nil {
				inst.Record(ctx, s.Value, opt)
			}
		default:
			if inst := e.gauge(s.Name); inst != nil {
				inst.Record(ctx, s.Value, opt)
			}
		}
	}
}

func (e *OTelExporter) counter(name string) metric.Float64Counter {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.counters[name]; ok {
		return inst
	}
	inst, err := e.meter.Float64Counter(name)
	if err != nil {
		return nil
	}
	e.counters[name] = inst
	return inst
}

func (e *OTelExporter) histogram(name string) metric.Float64Histogram {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.histograms[name]; ok {
		return inst
	}
	inst, err := e.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil
	}
	e.histograms[name] = inst
	return inst
}

func (e *OTelExporter) gauge(name string) metric.Float64Gauge {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.gauges[name]; ok {
		return inst
	}
	inst, err := e.meter.Float64Gauge(name)
	if err != nil {
		return nil
	}
	e.gauges[name] = inst
	return inst
}

func tagAttributes(tags map[string]string) []attribute.KeyValue {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, tags[k]))
	}
	return attrs
}

var _ Exporter = (*OTelExporter)(nil)
