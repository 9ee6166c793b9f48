package linking

import (
	"context"
	"math/rand"
	"time"

	"vttlink/internal/wikidata"
)

// RetryPolicy bounds the retry loop around remote search and enrichment
// calls: exponential backoff from BaseDelay up to MaxDelay, with a jitter
// fraction so concurrent workers do not synchronize their retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// DefaultRetryPolicy mirrors the retry budget the transcripts pipeline has
// always used against the Wikidata APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   600 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

// Delay returns the backoff before the given retry attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration(rand.Float64()*2*spread - spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Do runs op with the policy's bounded attempts, retrying only errors the
// retriable predicate accepts. It returns the last error and the number of
// attempts made, so callers can record the count for observability.
func (p RetryPolicy) Do(ctx context.Context, retriable func(error) bool, op func() error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return attempt, nil
		}
		if retriable == nil || !retriable(err) || attempt == maxAttempts {
			return attempt, err
		}
		if sleepErr := wikidata.SleepWithContext(ctx, p.Delay(attempt)); sleepErr != nil {
			return attempt, sleepErr
		}
	}
	return maxAttempts, err
}
