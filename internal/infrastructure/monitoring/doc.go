/*
Package monitoring provides Prometheus metrics for the scripting service.

# Overview

Metrics live in a private registry so several collectors can coexist in one
process (tests, embedded use). The bridge exposes them on /metrics via
Metrics.Handler and a JSON summary via Metrics.Snapshot.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	// ... run the script ...
	timer.Stop(monitoring.OutcomeCompleted)
*/
package monitoring
