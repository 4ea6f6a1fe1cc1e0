// Package health runs a registry of named boolean health checks with
// per-check timeouts and produces one aggregate report.
//
// Checks are isolated from each other: within a single run every check
// executes concurrently, and one check's failure or slowness cannot block
// or corrupt another's result. A check that fails or exceeds its timeout is
// reported as false; the overall status is healthy only when every check
// returned true.
//
// # Basic Usage
//
//	checker := health.New(health.Config{}, logger, metrics)
//	checker.Register("database", health.DatabaseCheck(pool))
//	checker.Register("cache", health.CacheCheck(health.NewRedisKV(client)))
//
//	report := checker.RunChecks(ctx)
//	if report.Status == health.StatusUnhealthy {
//	    // degrade or alert
//	}
//
// # HTTP Endpoints
//
//	mux.HandleFunc("/healthz", health.LivenessHandler())
//	mux.HandleFunc("/health", health.Handler(checker))
package health
