package resilience

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// BucketConfig configures a token bucket.
type BucketConfig struct {
	// Rate is the refill rate in tokens per second.
	// Default: 1
	Rate float64

	// Burst is the bucket capacity, i.e. the maximum number of calls
	// issuable instantaneously.
	// Default: 1
	Burst int

	// Jitter adds up to 10% extra wait before re-checking for tokens,
	// de-synchronizing callers that woke up together.
	Jitter bool
}

// TokenBucket is a token-bucket rate limiter. Tokens refill lazily from
// elapsed wall time; there is no background timer. Rate limiting is
// enforced purely through delay: Acquire never rejects, it waits until
// the debit succeeds or the context ends.
type TokenBucket struct {
	config BucketConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// BucketStatus is a point-in-time view of a bucket, for health and
// rate-limit reporting. Reading status never debits tokens.
type BucketStatus struct {
	// Remaining is the number of tokens currently available.
	Remaining float64

	// Capacity is the bucket's burst limit.
	Capacity int

	// RetryIn estimates how long a single-token acquire would wait.
	// Zero when a token is available now.
	RetryIn time.Duration
}

// NewTokenBucket creates a token bucket, full at construction.
func NewTokenBucket(config BucketConfig) *TokenBucket {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &TokenBucket{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Acquire blocks until one token has been debited or ctx ends.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	return b.AcquireN(ctx, 1)
}

// AcquireN blocks until n tokens have been debited or ctx ends.
//
// The refill-and-debit step runs under the bucket mutex, so two callers
// never debit the same tokens. A caller that finds the bucket short
// computes the refill time for the deficit, sleeps, and loops: a
// concurrent caller may have raced it for the refilled tokens, so a
// single wait is not enough.
func (b *TokenBucket) AcquireN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= float64(n) {
			b.tokens -= float64(n)
			b.mu.Unlock()
			return nil
		}
		deficit := float64(n) - b.tokens
		b.mu.Unlock()

		wait := time.Duration(deficit / b.config.Rate * float64(time.Second))
		if b.config.Jitter && wait > 0 {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			wait += time.Duration(rand.Int64N(int64(wait)/10 + 1))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Status reports the bucket state projected to now, without mutating it.
func (b *TokenBucket) Status() BucketStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	projected := b.tokens + time.Since(b.lastRefill).Seconds()*b.config.Rate
	if projected > float64(b.config.Burst) {
		projected = float64(b.config.Burst)
	}

	var retryIn time.Duration
	if projected < 1 {
		retryIn = time.Duration((1 - projected) / b.config.Rate * float64(time.Second))
	}

	return BucketStatus{
		Remaining: projected,
		Capacity:  b.config.Burst,
		RetryIn:   retryIn,
	}
}

func (b *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	b.lastRefill = now

	b.tokens += elapsed.Seconds() * b.config.Rate
	if b.tokens > float64(b.config.Burst) {
		b.tokens = float64(b.config.Burst)
	}
}

// LimitRule binds an endpoint-path pattern to a bucket configuration.
// Matching is by path substring; many logical endpoints share the one
// bucket their pattern resolves to.
type LimitRule struct {
	// Pattern is matched with strings.Contains against request paths.
	Pattern string

	// Rate is the refill rate in requests per second.
	Rate float64

	// Burst is the bucket capacity.
	Burst int
}

// LimiterTable resolves request paths to shared token buckets.
//
// Resolution is a deliberate ordered linear scan with first-match-wins
// semantics: patterns are substrings, not exact keys, so insertion order
// is significant and a hash lookup would change behavior. Paths matching
// no rule share the default bucket.
type LimiterTable struct {
	patterns []string
	buckets  []*TokenBucket
	fallback *TokenBucket
}

// NewLimiterTable creates a limiter table. Each rule gets its own bucket,
// constructed once and shared by every path the rule matches. Rules with
// a non-positive rate or burst fall back to the defaults in defaultConfig.
func NewLimiterTable(defaultConfig BucketConfig, rules []LimitRule) *LimiterTable {
	t := &LimiterTable{
		patterns: make([]string, 0, len(rules)),
		buckets:  make([]*TokenBucket, 0, len(rules)),
		fallback: NewTokenBucket(defaultConfig),
	}
	for _, rule := range rules {
		cfg := BucketConfig{Rate: rule.Rate, Burst: rule.Burst, Jitter: defaultConfig.Jitter}
		if cfg.Rate <= 0 {
			cfg.Rate = defaultConfig.Rate
		}
		if cfg.Burst <= 0 {
			cfg.Burst = defaultConfig.Burst
		}
		t.patterns = append(t.patterns, rule.Pattern)
		t.buckets = append(t.buckets, NewTokenBucket(cfg))
	}
	return t
}

// Resolve returns the bucket governing path.
func (t *LimiterTable) Resolve(path string) *TokenBucket {
	for i, pattern := range t.patterns {
		if strings.Contains(path, pattern) {
			return t.buckets[i]
		}
	}
	return t.fallback
}

// Acquire debits one token from the bucket governing path.
func (t *LimiterTable) Acquire(ctx context.Context, path string) error {
	return t.Resolve(path).Acquire(ctx)
}

// Status reports the state of the bucket governing path.
func (t *LimiterTable) Status(path string) BucketStatus {
	return t.Resolve(path).Status()
}
