package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects in-process fetch metrics independent of the OTEL
// pipeline, for callers that want a cheap snapshot.
type Metrics struct {
	peerStats         map[string]*PeerStats
	totalDuration     int64
	minDuration       int64
	canceledFetches   int64
	rateLimited       int64
	circuitOpen       int64
	failedFetches     int64
	durationCount     int64
	totalFetches      int64
	maxDuration       int64
	sentinelFetches   int64
	successfulFetches int64
	mu                sync.RWMutex
}

// PeerStats contains per-peer statistics.
type PeerStats struct {
	LastFetchAt   time.Time
	Peer          string
	LastStatus    string
	TotalFetches  int64
	Successful    int64
	Failed        int64
	TotalDuration int64
	AvgDuration   int64
}

// FetchStatus classifies a fetch outcome for metrics.
type FetchStatus string

const (
	FetchSuccess     FetchStatus = "success"
	FetchSentinel    FetchStatus = "sentinel"
	FetchCanceled    FetchStatus = "canceled"
	FetchRateLimited FetchStatus = "rate_limited"
	FetchCircuitOpen FetchStatus = "circuit_open"
	FetchFailed      FetchStatus = "failed"
)

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		peerStats:   make(map[string]*PeerStats),
		minDuration: -1,
	}
}

// RecordFetch records the outcome of a fetch.
func (m *Metrics) RecordFetch(peer string, status FetchStatus, duration time.Duration) {
	atomic.AddInt64(&m.totalFetches, 1)

	switch status {
	case FetchSuccess:
		atomic.AddInt64(&m.successfulFetches, 1)
	case FetchSentinel:
		atomic.AddInt64(&m.sentinelFetches, 1)
		atomic.AddInt64(&m.successfulFetches, 1)
	case FetchCanceled:
		atomic.AddInt64(&m.canceledFetches, 1)
		atomic.AddInt64(&m.failedFetches, 1)
	case FetchRateLimited:
		atomic.AddInt64(&m.rateLimited, 1)
		atomic.AddInt64(&m.failedFetches, 1)
	case FetchCircuitOpen:
		atomic.AddInt64(&m.circuitOpen, 1)
		atomic.AddInt64(&m.failedFetches, 1)
	default:
		atomic.AddInt64(&m.failedFetches, 1)
	}

	ns := duration.Nanoseconds()
	atomic.AddInt64(&m.totalDuration, ns)
	atomic.AddInt64(&m.durationCount, 1)

	for {
		old := atomic.LoadInt64(&m.minDuration)
		if old >= 0 && ns >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minDuration, old, ns) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.maxDuration)
		if ns <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.maxDuration, old, ns) {
			break
		}
	}

	m.updatePeerStats(peer, status, ns)
}

func (m *Metrics) updatePeerStats(peer string, status FetchStatus, durationNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.peerStats[peer]
	if !ok {
		stats = &PeerStats{Peer: peer}
		m.peerStats[peer] = stats
	}

	stats.TotalFetches++
	stats.TotalDuration += durationNs
	stats.AvgDuration = stats.TotalDuration / stats.TotalFetches
	stats.LastFetchAt = time.Now()
	stats.LastStatus = string(status)

	if status == FetchSuccess || status == FetchSentinel {
		stats.Successful++
	} else {
		stats.Failed++
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalFetches:      atomic.LoadInt64(&m.totalFetches),
		SuccessfulFetches: atomic.LoadInt64(&m.successfulFetches),
		FailedFetches:     atomic.LoadInt64(&m.failedFetches),
		SentinelFetches:   atomic.LoadInt64(&m.sentinelFetches),
		CanceledFetches:   atomic.LoadInt64(&m.canceledFetches),
		RateLimited:       atomic.LoadInt64(&m.rateLimited),
		CircuitOpen:       atomic.LoadInt64(&m.circuitOpen),
		AvgDuration:       m.avgDuration(),
		MinDuration:       time.Duration(atomic.LoadInt64(&m.minDuration)),
		MaxDuration:       time.Duration(atomic.LoadInt64(&m.maxDuration)),
		PeerStats:         m.getPeerStats(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	PeerStats         map[string]*PeerStats
	TotalFetches      int64
	SuccessfulFetches int64
	FailedFetches     int64
	SentinelFetches   int64
	CanceledFetches   int64
	RateLimited       int64
	CircuitOpen       int64
	AvgDuration       time.Duration
	MinDuration       time.Duration
	MaxDuration       time.Duration
}

// SuccessRate returns the success rate as a percentage.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalFetches == 0 {
		return 0
	}
	return float64(s.SuccessfulFetches) / float64(s.TotalFetches) * 100
}

// ErrorRate returns the error rate as a percentage.
func (s MetricsSnapshot) ErrorRate() float64 {
	if s.TotalFetches == 0 {
		return 0
	}
	return float64(s.FailedFetches) / float64(s.TotalFetches) * 100
}

func (m *Metrics) avgDuration() time.Duration {
	count := atomic.LoadInt64(&m.durationCount)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalDuration) / count)
}

func (m *Metrics) getPeerStats() map[string]*PeerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*PeerStats, len(m.peerStats))
	for k, v := range m.peerStats {
		copied := *v
		result[k] = &copied
	}
	return result
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.totalFetches, 0)
	atomic.StoreInt64(&m.successfulFetches, 0)
	atomic.StoreInt64(&m.failedFetches, 0)
	atomic.StoreInt64(&m.sentinelFetches, 0)
	atomic.StoreInt64(&m.canceledFetches, 0)
	atomic.StoreInt64(&m.rateLimited, 0)
	atomic.StoreInt64(&m.circuitOpen, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.durationCount, 0)
	atomic.StoreInt64(&m.minDuration, -1)
	atomic.StoreInt64(&m.maxDuration, 0)

	m.mu.Lock()
	m.peerStats = make(map[string]*PeerStats)
	m.mu.Unlock()
}
