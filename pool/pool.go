// Package pool provides a bounded worker pool with backpressure for
// dispatching concurrent snapshot fetches.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors.
var (
	ErrPoolFull     = errors.New("worker pool is full")
	ErrPoolShutdown = errors.New("worker pool is shutdown")
)

// Pool manages a bounded pool of workers.
type Pool interface {
	// Submit submits a function to the pool.
	Submit(ctx context.Context, fn func()) error

	// Stats returns current pool statistics.
	Stats() Stats

	// Shutdown gracefully shuts down the pool, draining queued work.
	Shutdown(ctx context.Context) error
}

// Config configures the worker pool.
type Config struct {
	// Workers is the number of workers.
	Workers int

	// QueueSize is the size of the task queue.
	QueueSize int

	// BackpressureStrategy defines behavior when queue is full.
	BackpressureStrategy BackpressureStrategy
}

// BackpressureStrategy defines how to handle a full queue.
type BackpressureStrategy int

const (
	// StrategyBlock blocks until space is available.
	StrategyBlock BackpressureStrategy = iota

	// StrategyReject immediately rejects new tasks.
	StrategyReject

	// StrategyCallerRuns executes in the caller's goroutine.
	StrategyCallerRuns
)

// Stats contains pool statistics.
type Stats struct {
	ActiveWorkers  int32
	QueueLength    int32
	QueueCapacity  int32
	TotalSubmitted int64
	TotalCompleted int64
	TotalRejected  int64
	AvgWaitTime    time.Duration
}

// DefaultConfig returns default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers:              8,
		QueueSize:            256,
		BackpressureStrategy: StrategyBlock,
	}
}

// task carries a queued function and its submission time for wait stats.
type task struct {
	submittedAt time.Time
	fn          func()
}

// pool is the concrete implementation.
type pool struct {
	taskQueue  chan task
	shutdownCh chan struct{}
	config     Config
	wg         sync.WaitGroup
	shutdown   int32

	activeWorkers  int32
	totalSubmitted int64
	totalCompleted int64
	totalRejected  int64
	totalWaitTime  int64
}

// New creates a new worker pool.
func New(config Config) (Pool, error) {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers * 10
	}

	p := &pool{
		config:     config,
		taskQueue:  make(chan task, config.QueueSize),
		shutdownCh: make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.run()
	}

	return p, nil
}

// Submit implements Pool.Submit.
func (p *pool) Submit(ctx context.Context, fn func()) error {
	if atomic.LoadInt32(&p.shutdown) == 1 {
		return ErrPoolShutdown
	}

	t := task{submittedAt: time.Now(), fn: fn}
	atomic.AddInt64(&p.totalSubmitted, 1)

	switch p.config.BackpressureStrategy {
	case StrategyReject:
		return p.submitNonBlocking(t)

	case StrategyCallerRuns:
		return p.submitCallerRuns(t)

	default:
		return p.submitBlocking(ctx, t)
	}
}

func (p *pool) submitBlocking(ctx context.Context, t task) error {
	select {
	case p.taskQueue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.shutdownCh:
		return ErrPoolShutdown
	}
}

func (p *pool) submitNonBlocking(t task) error {
	select {
	case p.taskQueue <- t:
		return nil
	default:
		atomic.AddInt64(&p.totalRejected, 1)
		return ErrPoolFull
	}
}

func (p *pool) submitCallerRuns(t task) error {
	select {
	case p.taskQueue <- t:
		return nil
	default:
		p.execute(t)
		return nil
	}
}

// Stats implements Pool.Stats.
func (p *pool) Stats() Stats {
	// len() and cap() on channels are safe to call concurrently; they give
	// an instantaneous snapshot which is acceptable for stats.
	return Stats{
		ActiveWorkers:  atomic.LoadInt32(&p.activeWorkers),
		QueueLength:    int32(len(p.taskQueue)),
		QueueCapacity:  int32(cap(p.taskQueue)),
		TotalSubmitted: atomic.LoadInt64(&p.totalSubmitted),
		TotalCompleted: atomic.LoadInt64(&p.totalCompleted),
		TotalRejected:  atomic.LoadInt64(&p.totalRejected),
		AvgWaitTime:    p.avgWaitTime(),
	}
}

// Shutdown implements Pool.Shutdown.
func (p *pool) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdown, 0, 1) {
		return nil
	}

	close(p.shutdownCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) run() {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.taskQueue:
			atomic.AddInt32(&p.activeWorkers, 1)
			p.execute(t)
			atomic.AddInt32(&p.activeWorkers, -1)

		case <-p.shutdownCh:
			// Drain remaining tasks before exiting
			for {
				select {
				case t := <-p.taskQueue:
					p.execute(t)
				default:
					return
				}
			}
		}
	}
}

func (p *pool) execute(t task) {
	atomic.AddInt64(&p.totalWaitTime, int64(time.Since(t.submittedAt)))

	defer func() {
		if r := recover(); r != nil {
			// Keep the worker alive; the panicking task is dropped
			_ = r
		}
		atomic.AddInt64(&p.totalCompleted, 1)
	}()

	if t.fn != nil {
		t.fn()
	}
}

func (p *pool) avgWaitTime() time.Duration {
	completed := atomic.LoadInt64(&p.totalCompleted)
	if completed == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&p.totalWaitTime) / completed)
}
