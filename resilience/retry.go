package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero means exactly one attempt, no retries.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the computed delay regardless of attempt count.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	// Default: 2.0
	Multiplier float64

	// Jitter perturbs each delay by up to ±25%, multiplicatively, so
	// concurrent callers do not retry in lockstep.
	Jitter bool

	// RetryIf decides whether an error is worth retrying.
	// Default: all non-nil errors are retried.
	RetryIf func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Stats describes a completed Execute run, for caller-side logging.
type Stats struct {
	// Attempts is how many times the operation ran (1 on first-try success).
	Attempts int

	// Elapsed is the total wall time spent, sleeps included.
	Elapsed time.Duration
}

// Retry executes fallible, idempotent-safe operations with exponential
// backoff.
type Retry struct {
	policy RetryPolicy
}

// retryAfterHinter is implemented by errors carrying a server-provided
// backoff hint (HTTP Retry-After). Declared here as a duck interface so
// this package stays decoupled from the transport error type.
type retryAfterHinter interface {
	RetryAfterHint() (time.Duration, bool)
}

// NewRetry creates a retry executor.
func NewRetry(policy RetryPolicy) *Retry {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2.0
	}
	if policy.RetryIf == nil {
		policy.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{policy: policy}
}

// Execute runs op until it succeeds, fails terminally, or retries are
// exhausted. The last error is returned unchanged; Stats is valid in
// every case, including context cancellation during a backoff sleep.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) (Stats, error) {
	start := time.Now()
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return Stats{Attempts: attempt + 1, Elapsed: time.Since(start)}, nil
		}

		if !r.policy.RetryIf(lastErr) || attempt >= r.policy.MaxRetries {
			return Stats{Attempts: attempt + 1, Elapsed: time.Since(start)}, lastErr
		}

		delay := r.delay(attempt)

		// A server that told us when to come back knows better than
		// our own schedule, but only if it asked for a longer wait.
		var hinter retryAfterHinter
		if errors.As(lastErr, &hinter) {
			if hint, ok := hinter.RetryAfterHint(); ok && hint > delay {
				delay = hint
			}
		}

		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt+1, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Stats{Attempts: attempt + 1, Elapsed: time.Since(start)}, lastErr
		case <-timer.C:
		}
	}
}

// delay computes min(BaseDelay * Multiplier^attempt, MaxDelay), then
// applies ±25% multiplicative jitter. The result is never negative and
// the pre-jitter value never exceeds MaxDelay.
func (r *Retry) delay(attempt int) time.Duration {
	d := float64(r.policy.BaseDelay) * math.Pow(r.policy.Multiplier, float64(attempt))
	if d > float64(r.policy.MaxDelay) {
		d = float64(r.policy.MaxDelay)
	}

	if r.policy.Jitter {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d *= 1 + (rand.Float64()*2-1)*0.25
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Policy returns the retry policy.
func (r *Retry) Policy() RetryPolicy {
	return r.policy
}
