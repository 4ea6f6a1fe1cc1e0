package observe_test

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/merchops/telemetry/observe"
)

func ExampleNew() {
	cfg := observe.Config{
		ServiceName:     "commerce-api",
		Env:             observe.EnvProduction,
		LogLevel:        "info",
		MetricsExporter: "none",
		TracingExporter: "none",
	}

	tel, err := observe.New(context.Background(), cfg, observe.NopReporter{})
	if err != nil {
		fmt.Println("setup failed:", err)
		return
	}
	defer tel.Shutdown(context.Background())

	tel.Metrics.Incr("orders.created", map[string]string{"channel": "web"})

	fmt.Println("wired:", tel.Logger != nil && tel.Metrics != nil && tel.Monitor != nil)
	// Output:
	// wired: true
}

func ExamplePerformanceMonitor_Measure() {
	logger := observe.NewLoggerWithWriter(observe.EnvProduction, "error", nil, io.Discard)
	metrics := observe.NewMetricsCollector(observe.CollectorConfig{}, logger, nil)
	monitor := observe.NewPerformanceMonitor(logger, metrics, nil)

	err := monitor.Measure(context.Background(), "orders.export", func(ctx context.Context) error {
		// the measured operation
		return nil
	}, map[string]string{"kind": "csv"})

	fmt.Println("error:", err)
	// Output:
	// error: <nil>
}

func ExamplePerformanceMonitor_Measure_failure() {
	logger := observe.NewLoggerWithWriter(observe.EnvProduction, "critical", nil, io.Discard)
	metrics := observe.NewMetricsCollector(observe.CollectorConfig{}, logger, nil)
	monitor := observe.NewPerformanceMonitor(logger, metrics, nil)

	failure := errors.New("upstream unavailable")
	err := monitor.Measure(context.Background(), "orders.sync", func(ctx context.Context) error {
		return failure
	}, nil)

	// The original failure is returned unchanged.
	fmt.Println("unchanged:", errors.Is(err, failure))
	// Output:
	// unchanged: true
}

func ExampleLogger_Error() {
	logger := observe.NewLoggerWithWriter(observe.EnvProduction, "info", nil, io.Discard)

	logger.Error("payment capture failed", &observe.Context{
		ShopID:  "shop-1",
		OrderID: "order-9",
	}, errors.New("card declined"))
	// Output:
}
