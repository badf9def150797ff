// Package middleware provides the gin middleware in front of the script bridge:
// CORS for browser hosts and per-client rate limiting.
package middleware
