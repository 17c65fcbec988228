// Package envutil provides environment overlay utilities.
package envutil

import (
	"github.com/victoralfred/goenviron/overlay"
)

// Minimal returns a minimal safe environment overlay.
func Minimal() *overlay.Overlay {
	o := overlay.New()
	o.Set("PATH", "/usr/bin:/bin")
	o.Set("LANG", "C.UTF-8")
	o.Set("LC_ALL", "C.UTF-8")
	o.Set("HOME", "/tmp")
	o.Set("USER", "nobody")
	return o
}

// Diff compares two overlays and reports the variable names that were
// added, changed or removed going from before to after. Names compare
// case-insensitively; the returned names use after's casing for added
// and changed entries and before's casing for removed ones.
func Diff(before, after *overlay.Overlay) (added, changed, removed []string) {
	after.Each(func(key, value string) {
		old, ok := before.Lookup(key)
		switch {
		case !ok:
			added = append(added, key)
		case old != value:
			changed = append(changed, key)
		}
	})

	before.Each(func(key, value string) {
		if _, ok := after.Lookup(key); !ok {
			removed = append(removed, key)
		}
	})

	return added, changed, removed
}
