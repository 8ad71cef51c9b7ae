// Package registry maintains the authoritative runtime view of each
// configured backend service and provides a uniform, fault-tolerant way to
// invoke it.
//
// # Architecture
//
// The registry owns a mutex-guarded map of ServiceRecords keyed by service
// id. Records are created on registration and mutated only by discovery and
// health-check operations. The registry is self-healing: every Invoke gives
// a non-running service exactly one re-discovery before failing, and the
// periodic health sweep retries all unreachable services continuously.
//
// # Health Checking
//
// CheckHealth issues the health request with a fixed timeout and retries
// transient-looking failures (timeout, connection refused, DNS failure) up
// to two additional times with exponential backoff before surfacing the
// error. Non-transient failures (malformed response, HTTP error status)
// surface immediately.
//
// Health checks for a single service are serialized through a singleflight
// group so that a backoff retry chain never runs concurrently with itself;
// checks for distinct services are independent and run concurrently.
//
// # Invocation
//
// Invoke proxies a tool call to the service's generic execute endpoint with
// a bounded timeout and returns the raw result plus invocation metadata.
// Tools listed in the descriptor's LongRunningTools get an extended timeout.
package registry
