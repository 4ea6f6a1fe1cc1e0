package observe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/merchops/telemetry/observe/exporters"
)

// Environment selects the log output format: colorized console lines in
// development, one JSON object per line in production.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config holds all configuration for the telemetry set.
type Config struct {
	ServiceName string      `env:"SERVICE_NAME" envDefault:"commerce-api"`
	Version     string      `env:"SERVICE_VERSION"`
	Env         Environment `env:"APP_ENV" envDefault:"development"`
	LogLevel    string      `env:"LOG_LEVEL" envDefault:"info"`

	// MetricsExporter and TracingExporter name the OpenTelemetry backends.
	// Empty or "none" disables the respective provider.
	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"none"`
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"`

	MetricsBatchSize     int           `env:"METRICS_BATCH_SIZE" envDefault:"100"`
	MetricsFlushInterval time.Duration `env:"METRICS_FLUSH_INTERVAL" envDefault:"60s"`
	HealthCheckTimeout   time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"5s"`
}

// FromEnv loads configuration from the process environment, reading a .env
// file first when one is present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("observe: parse environment: %w", err)
	}
	return cfg, nil
}

var validEnvironments = map[Environment]bool{
	EnvDevelopment: true,
	EnvProduction:  true,
}

var validLogLevels = map[string]bool{
	"debug":    true,
	"info":     true,
	"warn":     true,
	"error":    true,
	"critical": true,
	"":         true, // Empty falls back to info
}

var validMetricsExporters = map[string]bool{
	"otlp":       true,
	"prometheus": true,
	"stdout":     true,
	"none":       true,
	"":           true, // Empty is valid (disabled)
}

var validTracingExporters = map[string]bool{
	"otlp":   true,
	"stdout": true,
	"none":   true,
	"":       true, // Empty is valid (disabled)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if !validEnvironments[c.Env] {
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, c.Env)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.MetricsExporter)
	}
	if !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.TracingExporter)
	}
	return nil
}

// Telemetry is the wired set of observability services. It is constructed
// explicitly and injected into consumers; its lifecycle belongs to the
// hosting process's startup and shutdown sequence.
type Telemetry struct {
	Logger  *Logger
	Metrics *MetricsCollector
	Monitor *PerformanceMonitor

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// New constructs the telemetry set from the given configuration. A nil
// reporter disables forwarding of severe log entries. The periodic metrics
// flush is started; call Shutdown to stop it and drain.
func New(ctx context.Context, cfg Config, reporter Reporter) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Telemetry{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: create resource: %w", err)
	}

	t.Logger = NewLogger(cfg.Env, cfg.LogLevel, reporter)

	var tracer trace.Tracer
	if enabled(cfg.TracingExporter) {
		tp, tr, err := setupTracing(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observe: setup tracing: %w", err)
		}
		t.tracerProvider = tp
		tracer = tr
	} else {
		tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}

	var exporter Exporter
	if enabled(cfg.MetricsExporter) {
		mp, meter, err := setupMetrics(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observe: setup metrics: %w", err)
		}
		t.meterProvider = mp
		exporter = NewOTelExporter(meter)
	}

	t.Metrics = NewMetricsCollector(CollectorConfig{
		BatchSize:     cfg.MetricsBatchSize,
		FlushInterval: cfg.MetricsFlushInterval,
	}, t.Logger, exporter)
	t.Metrics.Start()

	t.Monitor = NewPerformanceMonitor(t.Logger, t.Metrics, tracer)

	return t, nil
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != "none"
}

func setupTracing(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, trace.Tracer, error) {
	exporter, err := exporters.NewTraceExporter(ctx, cfg.TracingExporter)
	if err != nil {
		return nil, nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp, tp.Tracer(cfg.ServiceName), nil
}

func setupMetrics(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, metric.Meter, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.MetricsExporter)
	if err != nil {
		return nil, nil, err
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	return mp, mp.Meter(cfg.ServiceName), nil
}

// Shutdown drains buffered metrics and shuts down the telemetry providers.
// Idempotent; returns the combined provider shutdown errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	t.Metrics.Close()

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
