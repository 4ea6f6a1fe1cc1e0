package observe

import (
	"context"
	"io"
	"testing"
)

// BenchmarkLogger_Info measures structured logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter(EnvProduction, "info", nil, io.Discard)
	lctx := &Context{ShopID: "shop-1", RequestID: "req-1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", lctx)
	}
}

// BenchmarkLogger_Console measures development-format logging throughput.
func BenchmarkLogger_Console(b *testing.B) {
	logger := NewLoggerWithWriter(EnvDevelopment, "info", nil, io.Discard)
	lctx := &Context{ShopID: "shop-1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", lctx)
	}
}

// BenchmarkMetricsCollector_Record measures sample recording overhead.
func BenchmarkMetricsCollector_Record(b *testing.B) {
	logger := NewLoggerWithWriter(EnvProduction, "error", nil, io.Discard)
	c := NewMetricsCollector(CollectorConfig{BatchSize: 1 << 20}, logger, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Counter("bench", 1, nil)
	}
}

// BenchmarkPerformanceMonitor_Measure measures full wrap overhead.
func BenchmarkPerformanceMonitor_Measure(b *testing.B) {
	logger := NewLoggerWithWriter(EnvProduction, "error", nil, io.Discard)
	metrics := NewMetricsCollector(CollectorConfig{BatchSize: 1 << 20}, logger, nil)
	m := NewPerformanceMonitor(logger, metrics, nil)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Measure(ctx, "bench", noop, nil)
	}
}
