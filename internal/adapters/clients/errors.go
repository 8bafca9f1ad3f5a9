// Package clients provides the instrumented HTTP client used to reach the
// remote quote source.
package clients

import "errors"

// Transport-level failures. The acl package translates them into domain errors.
var (
	// ErrCircuitOpen means the breaker is rejecting calls to an unhealthy downstream.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt has failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
