// Package bridge exposes the script runner to hosts.
//
// Routes:
//
//	POST /v1/scripts/run   {script, context} -> merged context | {error}
//	GET  /v1/scripts/ws    websocket: "run" frames answered by "result"/"error"
//	GET  /v1/metrics       JSON snapshot
//	GET  /metrics          Prometheus exposition
//	GET  /health
//
// Every run raises the busy signal before it starts and clears it when it
// returns, whatever the outcome.
package bridge
