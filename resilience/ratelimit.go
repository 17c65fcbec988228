// Package resilience provides per-peer rate limiting, circuit breaking and
// reconnect backoff for remote snapshot transports. None of these retry a
// failed fetch; they only gate when one may start.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter controls outbound fetch rate.
type RateLimiter interface {
	// Allow checks if a fetch is allowed for the given peer.
	Allow(peer string) bool

	// Wait blocks until a fetch is allowed or the context is canceled.
	Wait(ctx context.Context, peer string) error

	// SetLimit updates the rate limit for a peer.
	SetLimit(peer string, limit rate.Limit, burst int)
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// DefaultLimit is the default fetches per second.
	DefaultLimit float64

	// DefaultBurst is the default burst size.
	DefaultBurst int

	// PerPeer enables per-peer rate limiting; otherwise one global
	// limiter covers all peers.
	PerPeer bool

	// PeerLimits contains per-peer rate limits.
	PeerLimits map[string]PeerLimit
}

// PeerLimit defines the rate limit for a specific peer.
type PeerLimit struct {
	Limit float64
	Burst int
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultLimit: 10,
		DefaultBurst: 20,
		PerPeer:      true,
		PeerLimits:   make(map[string]PeerLimit),
	}
}

// rateLimiter implements RateLimiter.
type rateLimiter struct {
	config        RateLimiterConfig
	globalLimiter *rate.Limiter
	peerLimiters  map[string]*rate.Limiter
	mu            sync.RWMutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) RateLimiter {
	rl := &rateLimiter{
		config:        config,
		globalLimiter: rate.NewLimiter(rate.Limit(config.DefaultLimit), config.DefaultBurst),
		peerLimiters:  make(map[string]*rate.Limiter),
	}

	for peer, limit := range config.PeerLimits {
		rl.peerLimiters[peer] = rate.NewLimiter(rate.Limit(limit.Limit), limit.Burst)
	}

	return rl
}

// Allow implements RateLimiter.Allow.
func (rl *rateLimiter) Allow(peer string) bool {
	if !rl.config.PerPeer {
		return rl.globalLimiter.Allow()
	}
	return rl.getLimiter(peer).Allow()
}

// Wait implements RateLimiter.Wait.
func (rl *rateLimiter) Wait(ctx context.Context, peer string) error {
	if !rl.config.PerPeer {
		return rl.globalLimiter.Wait(ctx)
	}
	return rl.getLimiter(peer).Wait(ctx)
}

// SetLimit implements RateLimiter.SetLimit.
func (rl *rateLimiter) SetLimit(peer string, limit rate.Limit, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.peerLimiters[peer]; ok {
		limiter.SetLimit(limit)
		limiter.SetBurst(burst)
		return
	}
	rl.peerLimiters[peer] = rate.NewLimiter(limit, burst)
}

func (rl *rateLimiter) getLimiter(peer string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.peerLimiters[peer]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if existing, ok := rl.peerLimiters[peer]; ok {
		return existing
	}

	newLimiter := rate.NewLimiter(rate.Limit(rl.config.DefaultLimit), rl.config.DefaultBurst)
	rl.peerLimiters[peer] = newLimiter
	return newLimiter
}
