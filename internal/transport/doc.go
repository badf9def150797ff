// Package transport performs the requests scripts send with
// insomnia.sendRequest.
//
// Built on go-resty/resty with a go-retryablehttp transport:
//   - Per-host circuit breakers
//   - Client-side rate limiting
//   - Proxy selection from the host proxy settings
//   - Client certificates (PEM pairs and PKCS#12 bundles) matched by host
//   - A shared public-suffix-aware cookie jar
//
// Example Usage:
//
//	client, err := transport.NewClient(transport.DefaultConfig())
//	resp, err := client.Send(ctx, req, sdk.SendOptionsFor(obj))
package transport
