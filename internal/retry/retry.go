// Package retry is the single retry policy shared by the GitHub fetcher and
// the generation orchestrator. Callers describe how often and how fast to
// retry; non-retriable failures are marked Permanent and returned as-is.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retried operation. Zero values fall back to a single
// attempt with exponential backoff starting at one second.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Fixed, when positive, waits the same duration between attempts.
	Fixed time.Duration
	// Initial seeds exponential backoff (doubling per attempt) when Fixed
	// is zero.
	Initial time.Duration
}

// Permanent marks err as non-retriable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the attempt
// budget is spent, or ctx is done. op receives the 1-based attempt number so
// callers can produce per-attempt artifacts such as session logs.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var policy backoff.BackOff
	if p.Fixed > 0 {
		policy = backoff.NewConstantBackOff(p.Fixed)
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Initial
		if exp.InitialInterval <= 0 {
			exp.InitialInterval = time.Second
		}
		exp.Multiplier = 2
		exp.RandomizationFactor = 0
		exp.MaxElapsedTime = 0
		policy = exp
	}
	policy = backoff.WithMaxRetries(policy, uint64(attempts-1))
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		return op(attempt)
	}, policy)
}
