// Package main is the entry point for the script runner server.
//
// The server hosts the script sandbox behind an HTTP and websocket bridge.
// Hosts post a script together with the request context it runs against and
// receive the merged context back.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags override env vars
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
