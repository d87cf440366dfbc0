package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestRetry_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return core.ErrPersistence("x.md", errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() = %v, want nil after recovery", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	want := core.ErrValidation("C", "bad input")
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Execute() = %v, want the validation error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", calls)
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	cause := core.ErrPersistence("x.md", errors.New("disk full"))
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		return cause
	})

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Execute() = %v, want RetryExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("exhaustion must wrap the last error")
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy().Execute(ctx, func(context.Context) error {
		return core.ErrPersistence("x.md", errors.New("transient"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() = %v, want context.Canceled", err)
	}
}

func TestCalculateDelay_Caps(t *testing.T) {
	p := &RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
		Multiplier:  2,
	}
	if d := p.CalculateDelay(1); d != time.Second {
		t.Errorf("delay(1) = %v, want 1s", d)
	}
	if d := p.CalculateDelay(2); d != 2*time.Second {
		t.Errorf("delay(2) = %v, want 2s", d)
	}
	if d := p.CalculateDelay(5); d != 4*time.Second {
		t.Errorf("delay(5) = %v, want capped at 4s", d)
	}
}
