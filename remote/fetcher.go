package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/victoralfred/goenviron/overlay"
)

// RateLimiter controls outbound fetch rate.
type RateLimiter interface {
	// Allow checks if a fetch is allowed for the peer.
	Allow(peer string) bool
	// Wait blocks until a fetch is allowed for the peer.
	Wait(ctx context.Context, peer string) error
}

// CircuitBreaker guards unhealthy peers.
type CircuitBreaker interface {
	// Allow checks if a fetch is allowed.
	Allow(peer string) bool
	// RecordSuccess records a successful fetch.
	RecordSuccess(peer string)
	// RecordFailure records a failed fetch.
	RecordFailure(peer string)
}

// WorkerPool bounds concurrent batch fetches.
type WorkerPool interface {
	// Submit submits a task to the pool.
	Submit(ctx context.Context, fn func()) error
}

// Telemetry provides observability.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordMetric records a metric.
	RecordMetric(name string, value float64, labels map[string]string)
}

// Hook defines fetch lifecycle extension points.
type Hook interface {
	// PreFetch is called before a snapshot is requested from a peer.
	PreFetch(ctx context.Context, peer string) error
	// PostFetch is called after the request completes, successfully or not.
	PostFetch(ctx context.Context, peer string, snap *overlay.Overlay, err error) error
}

// Fetcher retrieves environment snapshots with optional rate limiting,
// circuit breaking, telemetry and hooks composed around the bare fetch.
// The decorators gate or observe; none of them retries on the caller's
// behalf.
type Fetcher struct {
	rateLimiter    RateLimiter
	circuitBreaker CircuitBreaker
	pool           WorkerPool
	telemetry      Telemetry
	hooks          []Hook
	wg             sync.WaitGroup
	mu             sync.RWMutex // protects shutdown check and wg.Add
	defaultTimeout time.Duration
	shutdown       int32
}

// Builder creates configured Fetcher instances.
type Builder struct {
	rateLimiter    RateLimiter
	circuitBreaker CircuitBreaker
	pool           WorkerPool
	telemetry      Telemetry
	hooks          []Hook
	defaultTimeout time.Duration
}

// NewBuilder creates a new fetcher builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithRateLimiter sets the rate limiter.
func (b *Builder) WithRateLimiter(limiter RateLimiter) *Builder {
	b.rateLimiter = limiter
	return b
}

// WithCircuitBreaker sets the circuit breaker.
func (b *Builder) WithCircuitBreaker(cb CircuitBreaker) *Builder {
	b.circuitBreaker = cb
	return b
}

// WithPool sets the worker pool used by FetchAll.
func (b *Builder) WithPool(pool WorkerPool) *Builder {
	b.pool = pool
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithHooks adds fetch hooks.
func (b *Builder) WithHooks(hooks ...Hook) *Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithDefaultTimeout sets a per-fetch timeout. Zero means no timeout
// beyond what the caller's context imposes.
func (b *Builder) WithDefaultTimeout(timeout time.Duration) *Builder {
	b.defaultTimeout = timeout
	return b
}

// Build creates the fetcher.
func (b *Builder) Build() (*Fetcher, error) {
	return &Fetcher{
		rateLimiter:    b.rateLimiter,
		circuitBreaker: b.circuitBreaker,
		pool:           b.pool,
		telemetry:      b.telemetry,
		hooks:          b.hooks,
		defaultTimeout: b.defaultTimeout,
	}, nil
}

// Fetch obtains a peer's environment snapshot through the configured
// decorators. A nil executor yields the sentinel overlay, bypassing the
// decorators entirely; the sentinel is informational, not a real fetch.
func (f *Fetcher) Fetch(ctx context.Context, exec Executor) (*overlay.Overlay, error) {
	// Shutdown check and wg.Add must be atomic so Shutdown cannot start
	// waiting between them.
	f.mu.RLock()
	if atomic.LoadInt32(&f.shutdown) == 1 {
		f.mu.RUnlock()
		return nil, ErrFetcherShutdown
	}
	f.wg.Add(1)
	f.mu.RUnlock()

	defer f.wg.Done()

	if exec == nil {
		return Sentinel(), nil
	}

	if f.telemetry != nil {
		var endSpan func()
		ctx, endSpan = f.telemetry.StartSpan(ctx, "remote.Fetch")
		defer endSpan()
	}

	peer := exec.Name()
	requestID := uuid.New().String()

	if err := f.runPreHooks(ctx, peer); err != nil {
		return nil, err
	}

	if f.rateLimiter != nil {
		if err := f.rateLimiter.Wait(ctx, peer); err != nil {
			// The caller giving up while queued is a cancellation, not a
			// limiter rejection.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, classify(peer, requestID, err)
			}
			return nil, NewRateLimitError(peer, requestID)
		}
	}

	if f.circuitBreaker != nil {
		if !f.circuitBreaker.Allow(peer) {
			return nil, NewCircuitOpenError(peer, requestID)
		}
	}

	fetchCtx := ctx
	if f.defaultTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.defaultTimeout)
		defer cancel()
	}

	start := time.Now()
	snap, callErr := exec.Call(fetchCtx, HostSnapshot)
	duration := time.Since(start)

	var result *overlay.Overlay
	var err error
	if callErr != nil {
		err = classify(peer, requestID, callErr)
	} else {
		result = overlay.NewFrom(snap)
	}

	if f.circuitBreaker != nil {
		if err == nil {
			f.circuitBreaker.RecordSuccess(peer)
		} else {
			f.circuitBreaker.RecordFailure(peer)
		}
	}

	if f.telemetry != nil {
		status := "success"
		if err != nil {
			status = string(GetErrorCode(err))
		}
		f.telemetry.RecordMetric("fetch_duration_seconds", duration.Seconds(), map[string]string{
			"peer":   peer,
			"status": status,
		})
	}

	if hookErr := f.runPostHooks(ctx, peer, result, err); hookErr != nil {
		return result, hookErr
	}

	return result, err
}

// FetchAsync obtains a peer's snapshot asynchronously.
func (f *Fetcher) FetchAsync(ctx context.Context, exec Executor) Future[*overlay.Overlay] {
	asyncCtx, cancel := context.WithCancel(ctx)
	future := NewOverlayFuture(cancel)

	go func() {
		defer cancel()
		result, err := f.Fetch(asyncCtx, exec)
		future.Complete(result, err)
	}()

	return future
}

// FetchAll obtains snapshots from multiple peers concurrently. When a pool
// is configured, concurrency is bounded by it; otherwise each fetch runs in
// its own goroutine. Results are positional; the first error encountered is
// returned alongside the partial results.
func (f *Fetcher) FetchAll(ctx context.Context, execs []Executor) ([]*overlay.Overlay, error) {
	results := make([]*overlay.Overlay, len(execs))
	errs := make([]error, len(execs))

	var wg sync.WaitGroup
	for i, exec := range execs {
		wg.Add(1)
		task := func(idx int, e Executor) func() {
			return func() {
				defer wg.Done()
				results[idx], errs[idx] = f.Fetch(ctx, e)
			}
		}(i, exec)

		if f.pool != nil {
			if err := f.pool.Submit(ctx, task); err != nil {
				errs[i] = err
				wg.Done()
			}
		} else {
			go task()
		}
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// Shutdown waits for in-flight fetches to complete and rejects new ones.
func (f *Fetcher) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	atomic.StoreInt32(&f.shutdown, 1)
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runPreHooks runs pre-fetch hooks.
// Hooks are read-only after Build, so no lock is needed.
func (f *Fetcher) runPreHooks(ctx context.Context, peer string) error {
	for _, hook := range f.hooks {
		if err := hook.PreFetch(ctx, peer); err != nil {
			return err
		}
	}
	return nil
}

// runPostHooks runs post-fetch hooks.
func (f *Fetcher) runPostHooks(ctx context.Context, peer string, snap *overlay.Overlay, fetchErr error) error {
	for _, hook := range f.hooks {
		if err := hook.PostFetch(ctx, peer, snap, fetchErr); err != nil {
			return err
		}
	}
	return nil
}
