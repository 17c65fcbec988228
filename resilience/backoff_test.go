package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	config := BackoffConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
		MaxAttempts:     5,
		Jitter:          false,
	}
	b := NewExponentialBackoff(config)

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
	}
	for i, want := range expected {
		if got := b.Next(); got != want {
			t.Errorf("Attempt %d: expected %v, got %v", i, want, got)
		}
	}

	if got := b.Next(); got != 0 {
		t.Errorf("Expected 0 after max attempts, got %v", got)
	}
}

func TestExponentialBackoff_Reset(t *testing.T) {
	config := BackoffConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
		MaxAttempts:     2,
		Jitter:          false,
	}
	b := NewExponentialBackoff(config)

	b.Next()
	b.Next()
	if b.Next() != 0 {
		t.Error("Expected exhaustion after max attempts")
	}

	b.Reset()

	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("Expected initial interval after reset, got %v", got)
	}
	if b.Attempts() != 1 {
		t.Errorf("Expected 1 attempt after reset, got %d", b.Attempts())
	}
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	config := BackoffConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
		JitterFactor:    0.5,
	}
	b := NewExponentialBackoff(config)

	got := b.Next()
	min := 50 * time.Millisecond
	max := 150 * time.Millisecond
	if got < min || got > max {
		t.Errorf("Expected jittered interval in [%v, %v], got %v", min, max, got)
	}
}

func TestExponentialBackoff_Unlimited(t *testing.T) {
	config := BackoffConfig{
		InitialInterval: 1 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Multiplier:      2.0,
		MaxAttempts:     0,
		Jitter:          false,
	}
	b := NewExponentialBackoff(config)

	for i := 0; i < 100; i++ {
		if b.Next() == 0 {
			t.Fatalf("Unlimited backoff exhausted at attempt %d", i)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	b := NewConstantBackoff(50*time.Millisecond, 3)

	for i := 0; i < 3; i++ {
		if got := b.Next(); got != 50*time.Millisecond {
			t.Errorf("Attempt %d: expected 50ms, got %v", i, got)
		}
	}
	if got := b.Next(); got != 0 {
		t.Errorf("Expected 0 after max attempts, got %v", got)
	}

	b.Reset()
	if got := b.Next(); got != 50*time.Millisecond {
		t.Errorf("Expected 50ms after reset, got %v", got)
	}
}

func TestWaitNext(t *testing.T) {
	b := NewConstantBackoff(1*time.Millisecond, 2)

	ok, err := WaitNext(context.Background(), b)
	if err != nil {
		t.Fatalf("WaitNext failed: %v", err)
	}
	if !ok {
		t.Error("Expected WaitNext to report another attempt available")
	}
}

func TestWaitNext_Exhausted(t *testing.T) {
	b := NewConstantBackoff(1*time.Millisecond, 1)
	b.Next()

	ok, err := WaitNext(context.Background(), b)
	if err != nil {
		t.Fatalf("WaitNext failed: %v", err)
	}
	if ok {
		t.Error("Expected WaitNext to report exhaustion")
	}
}

func TestWaitNext_ContextCanceled(t *testing.T) {
	b := NewConstantBackoff(5*time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := WaitNext(ctx, b)
	if ok {
		t.Error("Expected WaitNext to report failure on cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
