// Package hooks provides extension points for the overlay and fetch lifecycle.
package hooks

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/victoralfred/goenviron/overlay"
)

// Hook defines extension points for the environment lifecycle.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// PreFetchHook is called before a remote snapshot fetch.
type PreFetchHook interface {
	Hook
	PreFetch(ctx context.Context, peer string) error
}

// PostFetchHook is called after a remote snapshot fetch.
type PostFetchHook interface {
	Hook
	PostFetch(ctx context.Context, peer string, snap *overlay.Overlay, err error) error
}

// PreOverrideHook can rewrite an override before it is applied.
type PreOverrideHook interface {
	Hook
	PreOverride(ctx context.Context, key, value string) (string, string, error)
}

// PostOverrideHook is called after an override is applied.
type PostOverrideHook interface {
	Hook
	PostOverride(ctx context.Context, o *overlay.Overlay, key, value string) error
}

// Registry manages hook registration and invocation. Its PreFetch and
// PostFetch methods run the registered fetch hooks in priority order.
type Registry struct {
	preFetch     []PreFetchHook
	postFetch    []PostFetchHook
	preOverride  []PreOverrideHook
	postOverride []PostOverrideHook
	mu           sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		preFetch:     make([]PreFetchHook, 0),
		postFetch:    make([]PostFetchHook, 0),
		preOverride:  make([]PreOverrideHook, 0),
		postOverride: make([]PostOverrideHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement several
// lifecycle interfaces at once.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := hook.(PreFetchHook); ok {
		r.preFetch = append(r.preFetch, h)
		sort.Slice(r.preFetch, func(i, j int) bool {
			return r.preFetch[i].Priority() < r.preFetch[j].Priority()
		})
	}

	if h, ok := hook.(PostFetchHook); ok {
		r.postFetch = append(r.postFetch, h)
		sort.Slice(r.postFetch, func(i, j int) bool {
			return r.postFetch[i].Priority() < r.postFetch[j].Priority()
		})
	}

	if h, ok := hook.(PreOverrideHook); ok {
		r.preOverride = append(r.preOverride, h)
		sort.Slice(r.preOverride, func(i, j int) bool {
			return r.preOverride[i].Priority() < r.preOverride[j].Priority()
		})
	}

	if h, ok := hook.(PostOverrideHook); ok {
		r.postOverride = append(r.postOverride, h)
		sort.Slice(r.postOverride, func(i, j int) bool {
			return r.postOverride[i].Priority() < r.postOverride[j].Priority()
		})
	}

	return nil
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preFetch = removeByNamePre(r.preFetch, name)
	r.postFetch = removeByNamePost(r.postFetch, name)
	r.preOverride = removeByNamePreOverride(r.preOverride, name)
	r.postOverride = removeByNamePostOverride(r.postOverride, name)
}

// PreFetch runs all pre-fetch hooks.
func (r *Registry) PreFetch(ctx context.Context, peer string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.preFetch {
		if err := hook.PreFetch(ctx, peer); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// PostFetch runs all post-fetch hooks.
func (r *Registry) PostFetch(ctx context.Context, peer string, snap *overlay.Overlay, fetchErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.postFetch {
		if err := hook.PostFetch(ctx, peer, snap, fetchErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// ApplyOverride runs the override through pre-override hooks, applies it
// to the overlay, then runs post-override hooks with the final pair.
func (r *Registry) ApplyOverride(ctx context.Context, o *overlay.Overlay, key, value string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.preOverride {
		var err error
		key, value, err = hook.PreOverride(ctx, key, value)
		if err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}

	o.Override(key, value)

	for _, hook := range r.postOverride {
		if err := hook.PostOverride(ctx, o, key, value); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

func removeByNamePre(hooks []PreFetchHook, name string) []PreFetchHook {
	result := make([]PreFetchHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNamePost(hooks []PostFetchHook, name string) []PostFetchHook {
	result := make([]PostFetchHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNamePreOverride(hooks []PreOverrideHook, name string) []PreOverrideHook {
	result := make([]PreOverrideHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNamePostOverride(hooks []PostOverrideHook, name string) []PostOverrideHook {
	result := make([]PostOverrideHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

// LoggingHook is a built-in hook that logs fetches and overrides.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) PreFetch(ctx context.Context, peer string) error {
	h.logger("Fetching environment from %s", peer)
	return nil
}

func (h *LoggingHook) PostFetch(ctx context.Context, peer string, snap *overlay.Overlay, err error) error {
	if err != nil {
		h.logger("Fetch failed: %s - %v", peer, err)
	} else {
		h.logger("Fetch completed: %s - vars=%d", peer, snap.Len())
	}
	return nil
}

func (h *LoggingHook) PostOverride(ctx context.Context, o *overlay.Overlay, key, value string) error {
	h.logger("Override applied: %s", key)
	return nil
}

// RedactHook removes variables matching sensitive name patterns from
// fetched snapshots before anyone else sees them.
type RedactHook struct {
	patterns []*regexp.Regexp
}

// NewRedactHook creates a redact hook from wildcard patterns like
// "*_SECRET*" or "AWS_*".
func NewRedactHook(patterns []string) *RedactHook {
	h := &RedactHook{}
	for _, p := range patterns {
		escaped := "^" + strings.ReplaceAll(regexp.QuoteMeta(p), "\\*", ".*") + "$"
		if re, err := regexp.Compile(escaped); err == nil {
			h.patterns = append(h.patterns, re)
		}
	}
	return h
}

func (h *RedactHook) Name() string  { return "redact" }
func (h *RedactHook) Priority() int { return 10 }

func (h *RedactHook) PostFetch(ctx context.Context, peer string, snap *overlay.Overlay, err error) error {
	if err != nil || snap == nil {
		return nil
	}

	var doomed []string
	snap.Each(func(key, value string) {
		for _, re := range h.patterns {
			if re.MatchString(key) {
				doomed = append(doomed, key)
				return
			}
		}
	})
	for _, key := range doomed {
		snap.Delete(key)
	}
	return nil
}
