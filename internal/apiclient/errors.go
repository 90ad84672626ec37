package apiclient

import (
	"errors"
	"fmt"
)

// ErrCancelled reports that the caller's context ended before the call
// completed. It is distinct from NetworkFault.
var ErrCancelled = errors.New("request cancelled")

// StructuredError is a non-2xx response. The payload is kept verbatim.
type StructuredError struct {
	Method     string
	Path       string
	StatusCode int
	Payload    Payload
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// Unauthorized reports whether the server rejected the credential.
func (e *StructuredError) Unauthorized() bool {
	return e.StatusCode == 401
}

// NetworkFault is a transport-level failure: DNS, connect, TLS or a broken
// response stream.
type NetworkFault struct {
	Op  string
	Err error
}

func (e *NetworkFault) Error() string {
	return fmt.Sprintf("network fault during %s: %v", e.Op, e.Err)
}

func (e *NetworkFault) Unwrap() error {
	return e.Err
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
