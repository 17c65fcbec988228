package overlay

import (
	"os"
	"sync"
)

// Source supplies raw host environment pairs in "KEY=VALUE" form.
// The default source is os.Environ.
type Source func() []string

var (
	hostOnce   sync.Once
	hostSnap   *Overlay
	hostSource Source = os.Environ
)

// Host returns a copy of the environment variables the current process
// inherited at startup.
//
// The snapshot is captured exactly once, on first use, and never re-queried;
// later changes to the process environment are not reflected. Every call
// returns an independent copy, so the shared snapshot itself cannot be
// mutated through the returned overlay.
func Host() *Overlay {
	hostOnce.Do(func() {
		hostSnap = capture(hostSource)
	})
	return hostSnap.Clone()
}

// HostLookup reads a single variable from the host snapshot without copying
// the whole overlay.
func HostLookup(key string) (string, bool) {
	hostOnce.Do(func() {
		hostSnap = capture(hostSource)
	})
	return hostSnap.Lookup(key)
}

// SetHostSource replaces the source used to capture the host snapshot.
// It has no effect once the snapshot has been captured, so it must be
// called before any use of Host or HostLookup. Intended for tests and for
// embedders that bootstrap the environment themselves.
func SetHostSource(src Source) {
	if src != nil {
		hostSource = src
	}
}

// capture builds the snapshot from a source.
func capture(src Source) *Overlay {
	return FromEnviron(src())
}
