package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

type hintedError struct {
	hint time.Duration
}

func (e *hintedError) Error() string { return "rate limited" }

func (e *hintedError) RetryAfterHint() (time.Duration, bool) {
	return e.hint, e.hint > 0
}

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryPolicy{})

	if r.policy.BaseDelay != 100*time.Millisecond {
		t.Errorf("BaseDelay = %s, want 100ms", r.policy.BaseDelay)
	}
	if r.policy.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %s, want 30s", r.policy.MaxDelay)
	}
	if r.policy.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.policy.Multiplier)
	}
}

func TestNewRetry_MaxDelayNeverBelowBase(t *testing.T) {
	r := NewRetry(RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Millisecond})
	if r.policy.MaxDelay != time.Second {
		t.Errorf("MaxDelay = %s, want clamped up to BaseDelay", r.policy.MaxDelay)
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	r := NewRetry(RetryPolicy{MaxRetries: 3})

	calls := 0
	stats, err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if stats.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", stats.Attempts)
	}
}

func TestRetry_ZeroMaxRetriesMeansOneAttempt(t *testing.T) {
	r := NewRetry(RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond})

	calls := 0
	_, err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1", calls)
	}
	if err != errTransient {
		t.Errorf("err = %v, want the operation error unchanged", err)
	}
}

func TestRetry_AttemptBound(t *testing.T) {
	r := NewRetry(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})

	calls := 0
	stats, err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})
	if calls != 4 {
		t.Errorf("calls = %d, want MaxRetries+1 = 4", calls)
	}
	if stats.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", stats.Attempts)
	}
	if err != errTransient {
		t.Errorf("err = %v, want last error unchanged", err)
	}
}

func TestRetry_TerminalErrorNotRetried(t *testing.T) {
	terminal := errors.New("bad request")
	r := NewRetry(RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		RetryIf:    func(err error) bool { return err != terminal },
	})

	calls := 0
	_, err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return terminal
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for terminal error", calls)
	}
	if err != terminal {
		t.Errorf("err = %v, want terminal error unchanged", err)
	}
}

func TestRetry_EventualSuccessTiming(t *testing.T) {
	// Fails twice with a retryable error, then succeeds: 3 attempts,
	// elapsed at least base + base*multiplier.
	r := NewRetry(RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  20 * time.Millisecond,
		Multiplier: 2,
	})

	calls := 0
	start := time.Now()
	stats, err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls <= 2 {
			return errTransient
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if stats.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", stats.Attempts)
	}
	if elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %s, want >= 60ms (20ms + 40ms of backoff)", elapsed)
	}
	if stats.Elapsed < 60*time.Millisecond {
		t.Errorf("Stats.Elapsed = %s, want >= 60ms", stats.Elapsed)
	}
}

func TestRetry_DelayClamp(t *testing.T) {
	r := NewRetry(RetryPolicy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   300 * time.Millisecond,
		Multiplier: 10,
	})

	for attempt := 0; attempt < 50; attempt++ {
		if d := r.delay(attempt); d > 300*time.Millisecond {
			t.Fatalf("delay(%d) = %s, want <= MaxDelay", attempt, d)
		}
	}
}

func TestRetry_DelayJitterStaysPositive(t *testing.T) {
	r := NewRetry(RetryPolicy{
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
		Jitter:     true,
	})

	for attempt := 0; attempt < 30; attempt++ {
		d := r.delay(attempt)
		if d < 0 {
			t.Fatalf("delay(%d) = %s, want >= 0", attempt, d)
		}
		if d > time.Duration(float64(time.Second)*1.25) {
			t.Fatalf("delay(%d) = %s, want <= MaxDelay*1.25", attempt, d)
		}
	}
}

func TestRetry_RetryAfterHintOverridesSmallerDelay(t *testing.T) {
	r := NewRetry(RetryPolicy{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
	})

	var observed time.Duration
	r.policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		observed = delay
	}

	calls := 0
	_, _ = r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &hintedError{hint: 50 * time.Millisecond}
		}
		return nil
	})

	if observed != 50*time.Millisecond {
		t.Errorf("retry delay = %s, want the 50ms server hint", observed)
	}
}

func TestRetry_RetryAfterHintIgnoredWhenSmaller(t *testing.T) {
	r := NewRetry(RetryPolicy{
		MaxRetries: 1,
		BaseDelay:  40 * time.Millisecond,
	})

	var observed time.Duration
	r.policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		observed = delay
	}

	calls := 0
	_, _ = r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &hintedError{hint: time.Millisecond}
		}
		return nil
	})

	if observed != 40*time.Millisecond {
		t.Errorf("retry delay = %s, want the computed 40ms", observed)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryPolicy{MaxRetries: 5, BaseDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	stats, err := r.Execute(ctx, func(context.Context) error {
		calls++
		return errTransient
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before cancellation", calls)
	}
	if err != errTransient {
		t.Errorf("err = %v, want last operation error", err)
	}
	if stats.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", stats.Attempts)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Execute kept sleeping after cancellation")
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	r := NewRetry(RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_, _ = r.Execute(context.Background(), func(context.Context) error {
		return errTransient
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}
