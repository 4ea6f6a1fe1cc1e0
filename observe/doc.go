// Package observe provides the observability core for a commerce service:
// structured logging, in-memory metric aggregation with bounded batching,
// and operation timing.
//
// It is a pure instrumentation library: no business logic, no transport, no
// I/O beyond the output writer and exporter setup. Consumers wire the
// telemetry set into route handlers and background hooks.
package observe
