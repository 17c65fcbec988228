package remote

import (
	"github.com/victoralfred/goenviron/overlay"
)

// Future represents an asynchronous result.
type Future[T any] interface {
	// Wait blocks until the result is available.
	Wait() (T, error)

	// Done returns a channel that is closed when the result is ready.
	Done() <-chan struct{}

	// Cancel attempts to cancel the operation.
	Cancel()
}

// OverlayFuture implements Future for overlay results.
type OverlayFuture struct {
	result *overlay.Overlay
	err    error
	done   chan struct{}
	cancel func()
}

// NewOverlayFuture creates a new overlay future.
func NewOverlayFuture(cancel func()) *OverlayFuture {
	return &OverlayFuture{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Complete sets the result and signals completion.
func (f *OverlayFuture) Complete(result *overlay.Overlay, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the result is available.
func (f *OverlayFuture) Wait() (*overlay.Overlay, error) {
	<-f.done
	return f.result, f.err
}

// Done returns a channel that is closed when the result is ready.
func (f *OverlayFuture) Done() <-chan struct{} {
	return f.done
}

// Cancel attempts to cancel the operation.
func (f *OverlayFuture) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}
