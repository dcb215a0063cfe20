// Package retry implements the bootstrap's recover-then-retry policy.
//
// Stack startups are not retried blindly: a failed attempt triggers a
// recovery action (usually a cleanup sweep) before the next try. A
// policy is a fixed attempt count plus one recovery hook; every
// retryable operation in the pipeline follows that shape.
package retry

import "context"

// Policy runs an operation up to Attempts times, invoking Recover between
// a failed attempt and the next one.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	Attempts int

	// Recover runs after a failed attempt when more attempts remain.
	// Recovery is best effort: its error is handed to OnRetry and the
	// next attempt proceeds regardless.
	Recover func(ctx context.Context) error

	// OnRetry observes each failed attempt that will be retried, after
	// recovery has run. recoverErr is nil when recovery succeeded or no
	// Recover hook is set.
	OnRetry func(attempt int, err, recoverErr error)
}

// Do runs fn under the policy and returns nil on the first success, the
// last attempt's error otherwise. Context cancellation stops the sequence
// before the next attempt.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		var recoverErr error
		if p.Recover != nil {
			recoverErr = p.Recover(ctx)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, recoverErr)
		}
	}
	return lastErr
}
