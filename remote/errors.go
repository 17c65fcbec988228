package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrTransport indicates the remote channel is broken or unreachable.
	ErrTransport = errors.New("remote channel unavailable")

	// ErrCanceled indicates the remote call was interrupted while waiting.
	ErrCanceled = errors.New("remote call canceled")

	// ErrRateLimited indicates the per-peer fetch rate limit was exceeded.
	ErrRateLimited = errors.New("fetch rate limit exceeded")

	// ErrCircuitOpen indicates the peer's circuit breaker is open.
	ErrCircuitOpen = errors.New("peer circuit breaker open")

	// ErrFetcherShutdown indicates the fetcher has been shut down.
	ErrFetcherShutdown = errors.New("fetcher shutdown")
)

// ErrorCode provides structured error classification.
type ErrorCode string

const (
	// ErrCodeTransport indicates a transport failure.
	ErrCodeTransport ErrorCode = "TRANSPORT_FAILURE"

	// ErrCodeCanceled indicates the call was interrupted.
	ErrCodeCanceled ErrorCode = "CANCELED"

	// ErrCodeRateLimited indicates rate limiting.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrCodeCircuitOpen indicates the circuit breaker is open.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// ErrCodeInternalError indicates an internal error.
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// FetchError provides detailed error information for a failed snapshot
// retrieval. Transport failures and cancellations carry distinct codes so
// callers can tell "peer unreachable" apart from "we gave up waiting".
type FetchError struct {
	// Op is the operation that failed.
	Op string

	// Peer identifies the remote execution context.
	Peer string

	// RequestID is the ID assigned to the fetch attempt.
	RequestID string

	// Err is the underlying error.
	Err error

	// Code is the structured error code.
	Code ErrorCode

	// Details provides human-readable details.
	Details string

	// Retryable indicates if the operation can be retried by the caller.
	// The fetcher itself never retries.
	Retryable bool
}

// Error returns the error message.
func (e *FetchError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Peer, e.Details)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Peer, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target. The package sentinels
// match by error code, so errors.Is(err, ErrCanceled) works even though the
// wrapped cause is the raw context error.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		if e.Code == ErrCodeTransport {
			return true
		}
	case ErrCanceled:
		if e.Code == ErrCodeCanceled {
			return true
		}
	case ErrRateLimited:
		if e.Code == ErrCodeRateLimited {
			return true
		}
	case ErrCircuitOpen:
		if e.Code == ErrCodeCircuitOpen {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// Error constructors for consistent error creation.

// NewTransportError creates a transport failure error.
func NewTransportError(peer, requestID string, cause error) error {
	return &FetchError{
		Op:        "fetch",
		Peer:      peer,
		RequestID: requestID,
		Err:       cause,
		Code:      ErrCodeTransport,
		Retryable: true,
	}
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(peer, requestID string, cause error) error {
	return &FetchError{
		Op:        "fetch",
		Peer:      peer,
		RequestID: requestID,
		Err:       cause,
		Code:      ErrCodeCanceled,
		Retryable: false,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(peer, requestID string) error {
	return &FetchError{
		Op:        "rate_limit",
		Peer:      peer,
		RequestID: requestID,
		Err:       ErrRateLimited,
		Code:      ErrCodeRateLimited,
		Details:   "rate limit exceeded, retry later",
		Retryable: true,
	}
}

// NewCircuitOpenError creates a circuit breaker open error.
func NewCircuitOpenError(peer, requestID string) error {
	return &FetchError{
		Op:        "circuit_breaker",
		Peer:      peer,
		RequestID: requestID,
		Err:       ErrCircuitOpen,
		Code:      ErrCodeCircuitOpen,
		Details:   "circuit breaker is open due to recent failures",
		Retryable: true,
	}
}

// IsRetryable returns true if the error is retryable by the caller.
func IsRetryable(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Code
	}
	return ErrCodeInternalError
}
