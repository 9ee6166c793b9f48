package linking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryDoSucceedsFirstAttempt(t *testing.T) {
	attempts, err := fastPolicy().Do(context.Background(), func(error) bool { return true }, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	transient := errors.New("transient")
	attempts, err := fastPolicy().Do(context.Background(), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestRetryDoStopsOnNonRetriable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(err error) bool { return false }, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want %v", err, permanent)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1", attempts, calls)
	}
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(error) bool { return true }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want %v", err, transient)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestRetryDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transient := errors.New("transient")
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}

	calls := 0
	_, err := policy.Do(ctx, func(error) bool { return true }, func() error {
		calls++
		cancel()
		return transient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	if got := policy.Delay(1); got != 100*time.Millisecond {
		t.Errorf("Delay(1) = %s, want 100ms", got)
	}
	if got := policy.Delay(2); got != 200*time.Millisecond {
		t.Errorf("Delay(2) = %s, want 200ms", got)
	}
	if got := policy.Delay(4); got != 300*time.Millisecond {
		t.Errorf("Delay(4) = %s, want capped 300ms", got)
	}
}

func TestDelayJitterStaysNonNegative(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second, Jitter: 1}
	for i := 0; i < 100; i++ {
		if got := policy.Delay(1); got < 0 {
			t.Fatalf("Delay returned negative duration %s", got)
		}
	}
}
