package exporters

import (
	"context"
	"testing"
)

func TestNewTraceExporter(t *testing.T) {
	ctx := context.Background()

	exp, err := NewTraceExporter(ctx, "none")
	if err != nil {
		t.Fatalf("NewTraceExporter(none) error = %v", err)
	}
	if exp == nil {
		t.Error("none exporter should be a discard exporter, not nil")
	}

	if _, err := NewTraceExporter(ctx, "carrier-pigeon"); err == nil {
		t.Error("unknown exporter name should error")
	}
}

func TestNewTraceExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	if _, err := NewTraceExporter(context.Background(), "otlp"); err == nil {
		t.Error("otlp without an endpoint should error")
	}
}

func TestNewMetricsReader(t *testing.T) {
	ctx := context.Background()

	reader, err := NewMetricsReader(ctx, "none")
	if err != nil {
		t.Fatalf("NewMetricsReader(none) error = %v", err)
	}
	if reader != nil {
		t.Error("none reader should be nil (disabled)")
	}

	if _, err := NewMetricsReader(ctx, "statsd"); err == nil {
		t.Error("unknown reader name should error")
	}
}

func TestNewMetricsReader_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); err == nil {
		t.Error("otlp without an endpoint should error")
	}
}
