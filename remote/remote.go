// Package remote provides retrieval of environment snapshots from remote peers.
package remote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/victoralfred/goenviron/overlay"
)

// SnapshotFunc is a zero-argument snapshot operation executed on a peer.
// It returns the executing peer's environment variables as plain key/value
// pairs. How the operation and its result cross the process boundary is
// entirely the transport's concern.
type SnapshotFunc func(ctx context.Context) (map[string]string, error)

// Executor is the capability to execute a snapshot operation on a remote
// execution context.
//
// Implementations must return a context cancellation error (or one wrapping
// it) when the call is interrupted while waiting, and any other error when
// the channel is broken or unreachable.
type Executor interface {
	// Name identifies the peer, for errors and telemetry.
	Name() string

	// Call executes fn on the peer and returns its result.
	Call(ctx context.Context, fn SnapshotFunc) (map[string]string, error)
}

// NotApplicable is the marker used for both key and value of the sentinel
// mapping returned when no peer is available.
const NotApplicable = "N/A"

// Sentinel returns the single-entry overlay signaling "not applicable".
// It is informational only and must not be treated as real environment data.
func Sentinel() *overlay.Overlay {
	o := overlay.New()
	o.Set(NotApplicable, NotApplicable)
	return o
}

// IsSentinel reports whether an overlay is the "not applicable" sentinel.
func IsSentinel(o *overlay.Overlay) bool {
	if o == nil || o.Len() != 1 {
		return false
	}
	v, ok := o.Lookup(NotApplicable)
	return ok && v == NotApplicable
}

// HostSnapshot is the snapshot operation shipped to peers: it returns the
// executing process's host environment snapshot.
func HostSnapshot(ctx context.Context) (map[string]string, error) {
	return overlay.Host().AsMap(), nil
}

// Fetch obtains the environment variables of a remote peer.
//
// A nil executor yields the sentinel overlay rather than an error. Otherwise
// the peer's snapshot is retrieved and wrapped in an overlay, imposing
// case-insensitive ordering on the result. Failures surface to the caller
// unmodified in kind: transport errors match ErrTransport, interruptions
// match ErrCanceled. There is no retry.
func Fetch(ctx context.Context, exec Executor) (*overlay.Overlay, error) {
	if exec == nil {
		return Sentinel(), nil
	}

	requestID := uuid.New().String()

	snap, err := exec.Call(ctx, HostSnapshot)
	if err != nil {
		return nil, classify(exec.Name(), requestID, err)
	}

	return overlay.NewFrom(snap), nil
}

// classify wraps a transport-layer error in a FetchError, distinguishing
// cancellation from channel failure.
func classify(peer, requestID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCanceledError(peer, requestID, err)
	}
	return NewTransportError(peer, requestID, err)
}
