/*
Package monitoring provides Prometheus metrics for the chat client and the
development backend.

# Overview

Each Metrics value owns its own registry so several clients (or tests) can
coexist in one process without colliding on the default registerer. Every
recording method is safe to call on a nil *Metrics, which lets components
treat metrics as optional.

# Metrics

- Streaming connections: active, opened by target, closed by reason
- Frames: received by type, malformed, transcripts sent
- Submissions by outcome (sent, bootstrap, rejected)
- Collaborator calls: count by status, latency
- HTTP requests served by the development backend
- Server-side WebSocket connections and messages

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "GET /sessions")
	// ... perform call ...
	timer.Stop("200")
*/
package monitoring
