package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	config := DefaultConfig()
	config.Workers = 2

	p, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if shutdownErr := p.Shutdown(context.Background()); shutdownErr != nil {
			t.Errorf("Shutdown() failed: %v", shutdownErr)
		}
	}()

	if p == nil {
		t.Fatal("New returned nil pool")
	}
}

func TestNew_ConfigDefaults(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	stats := p.Stats()
	if stats.QueueCapacity <= 0 {
		t.Error("Expected queue capacity to be defaulted")
	}
}

func TestPool_Submit(t *testing.T) {
	p, _ := New(DefaultConfig())
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	var executed int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			atomic.AddInt32(&executed, 1)
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	wg.Wait()

	if got := atomic.LoadInt32(&executed); got != 20 {
		t.Errorf("Expected 20 executions, got %d", got)
	}

	stats := p.Stats()
	if stats.TotalSubmitted != 20 {
		t.Errorf("Expected 20 submitted, got %d", stats.TotalSubmitted)
	}
	if stats.TotalCompleted != 20 {
		t.Errorf("Expected 20 completed, got %d", stats.TotalCompleted)
	}
}

func TestPool_SubmitReject(t *testing.T) {
	config := Config{
		Workers:              1,
		QueueSize:            1,
		BackpressureStrategy: StrategyReject,
	}
	p, _ := New(config)
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	block := make(chan struct{})
	defer close(block)

	// Occupy the worker, then fill the queue
	_ = p.Submit(context.Background(), func() { <-block })
	time.Sleep(20 * time.Millisecond)
	_ = p.Submit(context.Background(), func() {})

	err := p.Submit(context.Background(), func() {})
	if !errors.Is(err, ErrPoolFull) {
		t.Errorf("Expected ErrPoolFull, got %v", err)
	}

	if p.Stats().TotalRejected != 1 {
		t.Errorf("Expected 1 rejection, got %d", p.Stats().TotalRejected)
	}
}

func TestPool_SubmitCallerRuns(t *testing.T) {
	config := Config{
		Workers:              1,
		QueueSize:            1,
		BackpressureStrategy: StrategyCallerRuns,
	}
	p, _ := New(config)
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	block := make(chan struct{})
	defer close(block)

	_ = p.Submit(context.Background(), func() { <-block })
	time.Sleep(20 * time.Millisecond)
	_ = p.Submit(context.Background(), func() {})

	var ran int32
	err := p.Submit(context.Background(), func() {
		atomic.AddInt32(&ran, 1)
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("Expected task to run in caller's goroutine when queue is full")
	}
}

func TestPool_SubmitBlockingCanceled(t *testing.T) {
	config := Config{
		Workers:              1,
		QueueSize:            1,
		BackpressureStrategy: StrategyBlock,
	}
	p, _ := New(config)
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	block := make(chan struct{})
	defer close(block)

	_ = p.Submit(context.Background(), func() { <-block })
	time.Sleep(20 * time.Millisecond)
	_ = p.Submit(context.Background(), func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	p, _ := New(DefaultConfig())
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	if err := p.Submit(context.Background(), func() { panic("boom") }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	if err := p.Submit(context.Background(), func() {
		defer wg.Done()
		atomic.AddInt32(&ran, 1)
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	wg.Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("Workers should survive a panicking task")
	}
}

func TestPool_Shutdown(t *testing.T) {
	p, _ := New(DefaultConfig())

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	err := p.Submit(context.Background(), func() {})
	if !errors.Is(err, ErrPoolShutdown) {
		t.Errorf("Expected ErrPoolShutdown, got %v", err)
	}

	// Second shutdown is a no-op
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Second shutdown should succeed: %v", err)
	}
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	config := Config{Workers: 1, QueueSize: 10}
	p, _ := New(config)

	var executed int32
	for i := 0; i < 5; i++ {
		if err := p.Submit(context.Background(), func() {
			atomic.AddInt32(&executed, 1)
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if got := atomic.LoadInt32(&executed); got != 5 {
		t.Errorf("Expected queued work to drain on shutdown, got %d of 5", got)
	}
}
