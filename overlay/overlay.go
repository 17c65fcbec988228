// Package overlay provides the core environment variable overlay.
package overlay

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Overlay is an ordered, case-insensitive mapping of environment variable
// assignments for one logical execution context.
//
// Keys are unique under ASCII case-insensitive comparison: "PATH" and "Path"
// address the same entry. When an entry is updated through a key that differs
// only in case, the first-inserted casing is retained and the value is
// replaced. Iteration yields entries in case-insensitive lexicographic key
// order, not insertion order.
//
// An Overlay is a single-owner, in-memory structure with no internal
// synchronization. Concurrent mutation from multiple goroutines requires
// external locking by the caller.
type Overlay struct {
	entries map[string]entry
}

// entry retains the original key casing alongside the value.
type entry struct {
	key   string
	value string
}

// New creates an empty overlay.
func New() *Overlay {
	return &Overlay{entries: make(map[string]entry)}
}

// NewFrom creates an overlay seeded from an arbitrary map.
// Case-insensitive uniqueness is imposed on the source entries; when two
// source keys collide under folding, the surviving value is unspecified.
func NewFrom(m map[string]string) *Overlay {
	o := &Overlay{entries: make(map[string]entry, len(m))}
	for k, v := range m {
		o.Set(k, v)
	}
	return o
}

// FromEnviron creates an overlay from "KEY=VALUE" pairs as produced by
// os.Environ. Pairs without a separator are stored with an empty value;
// pairs with an empty key are skipped.
func FromEnviron(environ []string) *Overlay {
	o := &Overlay{entries: make(map[string]entry, len(environ))}
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		o.Set(key, value)
	}
	return o
}

// fold lowercases ASCII letters only, leaving all other bytes untouched.
// Comparison is deliberately locale-independent.
func fold(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for ; i < len(b); i++ {
				if c := b[i]; 'A' <= c && c <= 'Z' {
					b[i] = c + ('a' - 'A')
				}
			}
			return string(b)
		}
	}
	return s
}

// Get returns the value stored under key, or "" if absent.
// Lookup distinguishes an absent entry from a stored empty value.
func (o *Overlay) Get(key string) string {
	v, _ := o.Lookup(key)
	return v
}

// Lookup returns the value stored under key and whether it is present.
func (o *Overlay) Lookup(key string) (string, bool) {
	e, ok := o.entries[fold(key)]
	return e.value, ok
}

// Set stores value under key. If an entry already exists under a
// case-insensitively equal key, its value is replaced and the original
// key casing is kept.
func (o *Overlay) Set(key, value string) {
	fk := fold(key)
	if existing, ok := o.entries[fk]; ok {
		existing.value = value
		o.entries[fk] = existing
		return
	}
	o.entries[fk] = entry{key: key, value: value}
}

// Delete removes the entry stored under key, if any.
func (o *Overlay) Delete(key string) {
	delete(o.entries, fold(key))
}

// Len returns the number of entries.
func (o *Overlay) Len() int {
	return len(o.entries)
}

// Keys returns all keys in their original casing, sorted case-insensitively.
func (o *Overlay) Keys() []string {
	keys := make([]string, 0, len(o.entries))
	for fk := range o.entries {
		keys = append(keys, fk)
	}
	sort.Strings(keys)
	for i, fk := range keys {
		keys[i] = o.entries[fk].key
	}
	return keys
}

// Each calls fn for every entry in case-insensitive key order.
func (o *Overlay) Each(fn func(key, value string)) {
	folded := make([]string, 0, len(o.entries))
	for fk := range o.entries {
		folded = append(folded, fk)
	}
	sort.Strings(folded)
	for _, fk := range folded {
		e := o.entries[fk]
		fn(e.key, e.value)
	}
}

// Clone returns an independent copy of the overlay.
func (o *Overlay) Clone() *Overlay {
	clone := &Overlay{entries: make(map[string]entry, len(o.entries))}
	for fk, e := range o.entries {
		clone.entries[fk] = e
	}
	return clone
}

// AsMap returns the entries as a plain map keyed by the original casing.
func (o *Overlay) AsMap() map[string]string {
	m := make(map[string]string, len(o.entries))
	for _, e := range o.entries {
		m[e.key] = e.value
	}
	return m
}

// Environ returns the entries as "KEY=VALUE" pairs in iteration order,
// suitable for handing to a process launcher.
func (o *Overlay) Environ() []string {
	environ := make([]string, 0, len(o.entries))
	o.Each(func(key, value string) {
		environ = append(environ, key+"="+value)
	})
	return environ
}

// String returns a compact representation for logging.
func (o *Overlay) String() string {
	return fmt.Sprintf("overlay(%d entries)", len(o.entries))
}

// Override applies a single override entry to the overlay.
//
// An empty value removes any entry stored under key; overriding a variable
// to "nothing" erases it rather than setting an empty string.
//
// A key of the form NAME+SUFFIX, with the '+' at any position after the
// first character, contributes to the list variable NAME instead of
// replacing it: the new value is prepended to the existing value of NAME,
// joined by the platform path-list separator. The literal suffixed key is
// never stored. A leading '+' leaves no real key and falls through to plain
// replacement.
//
// Plain overrides are idempotent. Merge overrides are not: re-applying the
// same NAME+SUFFIX entry keeps prepending to the merged list. That is
// intentional; callers are expected to apply each distinct suffixed entry
// at most once per merge pass.
func (o *Overlay) Override(key, value string) {
	if value == "" {
		o.Delete(key)
		return
	}

	if idx := strings.IndexByte(key, '+'); idx > 0 {
		realKey := key[:idx]
		if existing, ok := o.Lookup(realKey); ok {
			value = value + string(os.PathListSeparator) + existing
		}
		o.Set(realKey, value)
		return
	}

	o.Set(key, value)
}

// OverrideAll applies Override for every entry of the given map.
//
// Go maps have no iteration order, so entries are applied in
// case-insensitive sorted key order to keep merge results deterministic.
// When several suffixed entries contribute to the same variable, the
// last-applied entry ends up frontmost in the merged list.
func (o *Overlay) OverrideAll(all map[string]string) {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fold(keys[i]) < fold(keys[j])
	})
	for _, k := range keys {
		o.Override(k, all[k])
	}
}

// OverrideFrom applies Override for every entry of the source overlay,
// in the source's iteration order.
func (o *Overlay) OverrideFrom(src *Overlay) {
	src.Each(func(key, value string) {
		o.Override(key, value)
	})
}
