package updater

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
)

// RetryState is the bounded retry machine of one check. Attempt never
// exceeds MaxAttempts and no delay is handed out after the last attempt.
type RetryState struct {
	Attempt     int
	MaxAttempts int
	Backoff     time.Duration

	policy backoff.BackOff
}

func NewRetryState(maxAttempts int, delay time.Duration) *RetryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryState{
		MaxAttempts: maxAttempts,
		Backoff:     delay,
		policy:      backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(maxAttempts-1)),
	}
}

// Begin starts the next attempt, reporting false once the budget is spent.
func (s *RetryState) Begin() bool {
	if s.Attempt >= s.MaxAttempts {
		return false
	}
	s.Attempt++
	return true
}

// Next returns the delay before the following attempt, or false when the
// attempt that just failed was the last one.
func (s *RetryState) Next() (time.Duration, bool) {
	if s.Exhausted() {
		return 0, false
	}
	d := s.policy.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}

func (s *RetryState) Exhausted() bool {
	return s.Attempt >= s.MaxAttempts
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
