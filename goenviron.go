package goenviron

import (
	"context"
	"path/filepath"

	"github.com/victoralfred/goenviron/config"
	"github.com/victoralfred/goenviron/internal/envutil"
	"github.com/victoralfred/goenviron/observability"
	"github.com/victoralfred/goenviron/overlay"
	"github.com/victoralfred/goenviron/pool"
	"github.com/victoralfred/goenviron/profile"
	"github.com/victoralfred/goenviron/remote"
	"github.com/victoralfred/goenviron/resilience"
	"github.com/victoralfred/goenviron/validation"
)

// =============================================================================
// Core Types
// =============================================================================

// Overlay is an ordered, case-insensitive map of environment variables.
// Use New, FromMap, FromEnviron or FromHost to create overlays.
type Overlay = overlay.Overlay

// Executor retrieves an environment snapshot from a peer.
type Executor = remote.Executor

// SnapshotFunc captures the environment on the side that evaluates it.
type SnapshotFunc = remote.SnapshotFunc

// Fetcher retrieves snapshots with rate limiting, circuit breaking,
// telemetry and hooks composed around the bare fetch.
type Fetcher = remote.Fetcher

// Builder creates configured Fetcher instances.
type Builder = remote.Builder

// Future is a handle to an asynchronous fetch.
type Future = remote.Future[*overlay.Overlay]

// FetchError is the structured error returned by failed fetches.
type FetchError = remote.FetchError

// LocalExecutor evaluates snapshots in-process, for same-host peers
// and tests.
type LocalExecutor = remote.LocalExecutor

// ProfileLoader loads named override sets from YAML files.
type ProfileLoader = profile.Loader

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrTransport indicates the remote channel failed.
	ErrTransport = remote.ErrTransport

	// ErrCanceled indicates the fetch was canceled or timed out.
	ErrCanceled = remote.ErrCanceled

	// ErrRateLimited indicates the rate limit was exceeded.
	ErrRateLimited = remote.ErrRateLimited

	// ErrCircuitOpen indicates the circuit breaker is open.
	ErrCircuitOpen = remote.ErrCircuitOpen

	// ErrFetcherShutdown indicates the fetcher has been shut down.
	ErrFetcherShutdown = remote.ErrFetcherShutdown
)

// NotApplicable is the name and value of the single entry in the
// sentinel overlay returned for nil peers.
const NotApplicable = remote.NotApplicable

// =============================================================================
// Overlay Construction
// =============================================================================

// New creates an empty overlay.
func New() *Overlay {
	return overlay.New()
}

// FromMap creates an overlay from a map. Later duplicate names (after
// case folding) win.
func FromMap(m map[string]string) *Overlay {
	return overlay.NewFrom(m)
}

// FromEnviron creates an overlay from "NAME=VALUE" pairs as returned by
// os.Environ.
func FromEnviron(environ []string) *Overlay {
	return overlay.FromEnviron(environ)
}

// FromHost returns a mutable copy of the host environment snapshot.
// The snapshot itself is taken once per process.
func FromHost() *Overlay {
	return overlay.Host()
}

// Minimal returns a minimal safe environment overlay, for launching
// processes that should not inherit the host environment.
func Minimal() *Overlay {
	return envutil.Minimal()
}

// Diff reports the variable names added, changed or removed going from
// before to after.
func Diff(before, after *Overlay) (added, changed, removed []string) {
	return envutil.Diff(before, after)
}

// HostLookup looks a name up in the host snapshot without copying it.
func HostLookup(name string) (string, bool) {
	return overlay.HostLookup(name)
}

// =============================================================================
// Remote Snapshots
// =============================================================================

// Sentinel returns the placeholder overlay used for nil peers.
func Sentinel() *Overlay {
	return remote.Sentinel()
}

// IsSentinel reports whether an overlay is the nil-peer placeholder.
func IsSentinel(o *Overlay) bool {
	return remote.IsSentinel(o)
}

// NewBuilder creates a new fetcher builder.
//
// Example:
//
//	fetcher, err := goenviron.NewBuilder().
//	    WithDefaultTimeout(30 * time.Second).
//	    Build()
func NewBuilder() *Builder {
	return remote.NewBuilder()
}

// NewLocalExecutor creates an executor that evaluates snapshots
// in-process.
func NewLocalExecutor(name string) *LocalExecutor {
	return remote.NewLocalExecutor(name)
}

// Fetch is a convenience function for a one-off fetch with no
// decorators. For repeated fetches, build a Fetcher instead.
func Fetch(ctx context.Context, exec Executor) (*Overlay, error) {
	return remote.Fetch(ctx, exec)
}

// NewFetcherFromConfig builds a fetcher wired with the rate limiter,
// circuit breaker, worker pool and telemetry described by cfg.
func NewFetcherFromConfig(cfg config.Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := remote.NewBuilder().
		WithDefaultTimeout(cfg.Fetch.DefaultTimeout).
		WithRateLimiter(resilience.NewRateLimiter(cfg.RateLimiter)).
		WithCircuitBreaker(resilience.NewCircuitBreaker(cfg.CircuitBreaker))

	p, err := pool.New(cfg.Pool)
	if err != nil {
		return nil, err
	}
	b = b.WithPool(p)

	b = b.WithHooks(&validationHook{registry: validation.DefaultRegistry()})

	if cfg.Fetch.EnableAudit && cfg.Audit.Enabled {
		logger, err := observability.NewFileAuditLogger(cfg.Audit)
		if err != nil {
			return nil, err
		}
		b = b.WithHooks(&auditHook{logger: logger})
	}

	if cfg.Fetch.EnableMetrics || cfg.Fetch.EnableTracing {
		cfg.Telemetry.EnableMetrics = cfg.Fetch.EnableMetrics
		cfg.Telemetry.EnableTracing = cfg.Fetch.EnableTracing
		t, err := observability.NewTelemetry(cfg.Telemetry)
		if err != nil {
			return nil, err
		}
		b = b.WithTelemetry(&telemetryAdapter{t: t})
	}

	return b.Build()
}

// validationHook runs the default validators over fetched snapshots so a
// peer cannot hand back entries the library would refuse to apply.
type validationHook struct {
	registry *validation.Registry
}

func (h *validationHook) PreFetch(ctx context.Context, peer string) error {
	return nil
}

func (h *validationHook) PostFetch(ctx context.Context, peer string, snap *Overlay, fetchErr error) error {
	if fetchErr != nil || snap == nil {
		return nil
	}
	return h.registry.ValidateAll(ctx, snap)
}

// auditHook writes an audit event for every completed fetch.
type auditHook struct {
	logger observability.AuditLogger
}

func (h *auditHook) PreFetch(ctx context.Context, peer string) error {
	return nil
}

func (h *auditHook) PostFetch(ctx context.Context, peer string, snap *Overlay, fetchErr error) error {
	varCount := 0
	if snap != nil {
		varCount = snap.Len()
	}
	// Audit failures must not fail the fetch itself.
	_ = h.logger.Log(ctx, observability.NewFetchEvent(peer, "", varCount, 0, fetchErr))
	return nil
}

// telemetryAdapter narrows observability.Telemetry to the span and
// metric calls the fetcher makes.
type telemetryAdapter struct {
	t observability.Telemetry
}

func (a *telemetryAdapter) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return a.t.StartSpan(ctx, name)
}

func (a *telemetryAdapter) RecordMetric(name string, value float64, labels map[string]string) {
	a.t.RecordDuration(name, value, labels)
}

// =============================================================================
// Validation
// =============================================================================

// ValidateOverlay validates an overlay against the default validators
// (entry syntax, NUL bytes, size limits).
func ValidateOverlay(ctx context.Context, o *Overlay) error {
	return validation.DefaultRegistry().ValidateAll(ctx, o)
}

// ValidateEntry validates a single override entry. Merge-form keys
// (NAME+SUFFIX) are validated against the name before the marker.
func ValidateEntry(key, value string) error {
	return validation.NewEntryValidator(nil).ValidateEntry(key, value)
}

// FilterOverlay returns a copy of o containing only entries admitted by
// the allow patterns and not struck by the deny patterns. Patterns use
// '*' as a wildcard.
func FilterOverlay(o *Overlay, allowed, denied []string) *Overlay {
	return validation.Filter(o, allowed, denied)
}

// =============================================================================
// Profile Loading
// =============================================================================

// LoadProfiles loads environment profiles from a YAML file. The
// basePath is the directory containing the profile file; profileFile is
// resolved relative to it and may not escape it.
//
// Example profiles.yaml:
//
//	version: "1.0"
//	profiles:
//	  maven:
//	    vars:
//	      JAVA_HOME: /opt/jdk17
//	      PATH+maven: /opt/maven/bin
func LoadProfiles(basePath, profileFile string, opts ...profile.LoaderOption) (*ProfileLoader, error) {
	return profile.NewLoader(basePath, profileFile, opts...)
}

// LoadProfilesFromPath loads profiles from a full file path.
func LoadProfilesFromPath(path string) (*ProfileLoader, error) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	return profile.NewLoader(dir, file)
}

// ExampleProfiles returns an example profile configuration. Use this as
// a starting point for creating your own profiles.
func ExampleProfiles() *profile.Config {
	return profile.ExampleConfig()
}

// =============================================================================
// Version Information
// =============================================================================

// Version returns the library version.
func Version() string {
	return "1.0.0"
}
