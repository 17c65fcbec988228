package resilience

import (
	"sync"
	"time"
)

// CircuitBreaker guards unhealthy peers.
type CircuitBreaker interface {
	// Allow checks if a fetch is allowed.
	Allow(peer string) bool

	// RecordSuccess records a successful fetch.
	RecordSuccess(peer string)

	// RecordFailure records a failed fetch.
	RecordFailure(peer string)

	// State returns the current state for a peer.
	State(peer string) CircuitState

	// Reset resets the circuit breaker for a peer.
	Reset(peer string)
}

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// StateClosed allows fetches through.
	StateClosed CircuitState = iota
	// StateOpen blocks all fetches.
	StateOpen
	// StateHalfOpen allows limited fetches for probing.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening.
	FailureThreshold int

	// SuccessThreshold is the number of successes to close from half-open.
	SuccessThreshold int

	// Timeout is the duration to wait before transitioning to half-open.
	Timeout time.Duration

	// PerPeer enables per-peer circuit breakers.
	PerPeer bool

	// OnStateChange is called when state changes.
	OnStateChange func(peer string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns default configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		PerPeer:          true,
	}
}

// circuitBreaker implements CircuitBreaker.
type circuitBreaker struct {
	config   CircuitBreakerConfig
	global   *breaker
	breakers map[string]*breaker
	mu       sync.RWMutex
}

// breaker is the state machine for a single peer.
type breaker struct {
	peer            string
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	config          *CircuitBreakerConfig
	mu              sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreaker {
	return &circuitBreaker{
		config:   config,
		global:   newBreaker("", &config),
		breakers: make(map[string]*breaker),
	}
}

// Allow implements CircuitBreaker.Allow.
func (cb *circuitBreaker) Allow(peer string) bool {
	if !cb.config.PerPeer {
		return cb.global.allow()
	}
	return cb.getBreaker(peer).allow()
}

// RecordSuccess implements CircuitBreaker.RecordSuccess.
func (cb *circuitBreaker) RecordSuccess(peer string) {
	if !cb.config.PerPeer {
		cb.global.recordSuccess()
		return
	}
	cb.getBreaker(peer).recordSuccess()
}

// RecordFailure implements CircuitBreaker.RecordFailure.
func (cb *circuitBreaker) RecordFailure(peer string) {
	if !cb.config.PerPeer {
		cb.global.recordFailure()
		return
	}
	cb.getBreaker(peer).recordFailure()
}

// State implements CircuitBreaker.State.
func (cb *circuitBreaker) State(peer string) CircuitState {
	if !cb.config.PerPeer {
		return cb.global.getState()
	}
	return cb.getBreaker(peer).getState()
}

// Reset implements CircuitBreaker.Reset.
func (cb *circuitBreaker) Reset(peer string) {
	if !cb.config.PerPeer {
		cb.global.reset()
		return
	}
	cb.getBreaker(peer).reset()
}

func (cb *circuitBreaker) getBreaker(peer string) *breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[peer]
	cb.mu.RUnlock()

	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Double-check
	if existing, ok := cb.breakers[peer]; ok {
		return existing
	}

	newB := newBreaker(peer, &cb.config)
	cb.breakers[peer] = newB
	return newB
}

func newBreaker(peer string, config *CircuitBreakerConfig) *breaker {
	return &breaker{
		peer:   peer,
		state:  StateClosed,
		config: config,
	}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastFailureTime) > b.config.Timeout {
			b.toHalfOpen()
			return true
		}
		return false

	case StateHalfOpen:
		return true
	}

	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *breaker) getState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailureTime) > b.config.Timeout {
		b.toHalfOpen()
	}

	return b.state
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

func (b *breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.successes = 0
	if to != StateHalfOpen {
		b.failures = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.peer, from, to)
	}
}

func (b *breaker) toHalfOpen() {
	from := b.state
	b.state = StateHalfOpen
	b.failures = 0
	b.successes = 0

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.peer, from, StateHalfOpen)
	}
}
