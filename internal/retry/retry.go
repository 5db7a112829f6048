// Package retry runs fallible operations with a bounded number of retries.
//
// The delay schedule is deliberately front-loaded (1s, 2s, 5s by default)
// rather than exponential so short network blips recover quickly.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxRetries is the number of retries after the first attempt
const DefaultMaxRetries = 3

// DefaultDelays is the wait before each retry; the last entry repeats
var DefaultDelays = []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second}

// Predicate decides whether a failed attempt may be retried
type Predicate func(error) bool

// Status describes a retry that is about to happen
type Status struct {
	Retry      int // 1-based retry number
	MaxRetries int
	Delay      time.Duration
	Err        error
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy holds the retry budget and schedule
type Policy struct {
	MaxRetries int
	Delays     []time.Duration

	// OnRetry is called before every wait. It may be nil.
	OnRetry func(Status)

	// Sleep defaults to a timer that honours ctx cancellation
	Sleep Sleeper
}

// NewPolicy creates a Policy with the default budget and schedule
func NewPolicy() *Policy {
	return &Policy{
		MaxRetries: DefaultMaxRetries,
		Delays:     append([]time.Duration(nil), DefaultDelays...),
	}
}

// Delay returns the wait before the given 1-based retry
func (p *Policy) Delay(retry int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	idx := retry - 1
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return p.Delays[idx]
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs op until it succeeds, a non-retryable error occurs, or the
// retry budget is spent. ctx only bounds the waits between attempts and is
// checked before each attempt; op is responsible for its own timeout.
// A negative MaxRetries is treated as zero.
func Execute[T any](ctx context.Context, p *Policy, op func() (T, error), retryable Predicate) (T, error) {
	var zero T
	if p == nil {
		p = NewPolicy()
	}
	maxRetries := max(p.MaxRetries, 0)

	attempt := 0
	for attempt <= maxRetries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op()
		if err == nil {
			return result, nil
		}

		if retryable == nil || !retryable(err) {
			return zero, err
		}
		if attempt == maxRetries {
			return zero, &MaxRetriesError{Attempts: attempt + 1, Last: err}
		}

		attempt++
		delay := p.Delay(attempt)
		slog.Warn("Retrying operation",
			"retry", attempt,
			"max_retries", maxRetries,
			"delay", delay,
			"error", err,
		)
		if p.OnRetry != nil {
			p.OnRetry(Status{Retry: attempt, MaxRetries: maxRetries, Delay: delay, Err: err})
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("waiting to retry: %w", err)
		}
	}
	return zero, ErrMaxRetriesExceeded
}
