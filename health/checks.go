package health

import (
	"context"
	"fmt"

	"github.com/adscope/amzcore/auth"
	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/resilience"
)

// CredentialsChecker reports whether the configured credentials are
// usable. An expired or missing token turns up here before it turns up
// as a burst of client errors.
type CredentialsChecker struct {
	provider auth.Provider
}

// NewCredentialsChecker creates a checker backed by an auth provider.
func NewCredentialsChecker(provider auth.Provider) *CredentialsChecker {
	return &CredentialsChecker{provider: provider}
}

// Name returns the name of this checker.
func (c *CredentialsChecker) Name() string {
	return "credentials"
}

// Check validates the credentials without sending a request upstream.
func (c *CredentialsChecker) Check(ctx context.Context) Result {
	if c.provider == nil {
		return Unhealthy("no auth provider configured", ErrCheckFailed)
	}
	if err := c.provider.Validate(ctx); err != nil {
		return Unhealthy("credential validation failed", err)
	}
	return Healthy("credentials valid")
}

// RateLimitCheckerConfig configures saturation thresholds as fractions
// of bucket capacity remaining.
type RateLimitCheckerConfig struct {
	// DegradedBelow marks the check degraded when the fraction of
	// tokens remaining drops below this value. Default: 0.25
	DegradedBelow float64

	// UnhealthyBelow marks the check unhealthy below this value.
	// Default: 0.0 (only a fully drained bucket is unhealthy)
	UnhealthyBelow float64
}

// RateLimitChecker reports saturation of the rate limit buckets for a
// set of watched endpoint paths.
type RateLimitChecker struct {
	limits *resilience.LimiterTable
	paths  []string
	config RateLimitCheckerConfig
}

// NewRateLimitChecker creates a checker watching the given paths.
func NewRateLimitChecker(limits *resilience.LimiterTable, paths []string, config ...RateLimitCheckerConfig) *RateLimitChecker {
	cfg := RateLimitCheckerConfig{DegradedBelow: 0.25}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.DegradedBelow <= 0 {
			cfg.DegradedBelow = 0.25
		}
	}
	return &RateLimitChecker{
		limits: limits,
		paths:  paths,
		config: cfg,
	}
}

// Name returns the name of this checker.
func (c *RateLimitChecker) Name() string {
	return "ratelimit"
}

// Check inspects each watched bucket without consuming tokens.
func (c *RateLimitChecker) Check(ctx context.Context) Result {
	if c.limits == nil {
		return Unhealthy("no limiter table configured", ErrCheckFailed)
	}

	worst := StatusHealthy
	details := make(map[string]any, len(c.paths))

	for _, path := range c.paths {
		status := c.limits.Status(path)
		frac := 1.0
		if status.Capacity > 0 {
			frac = status.Remaining / float64(status.Capacity)
		}

		details[path] = map[string]any{
			"remaining": status.Remaining,
			"capacity":  status.Capacity,
			"retry_in":  status.RetryIn.String(),
		}

		switch {
		case frac <= c.config.UnhealthyBelow:
			worst = StatusUnhealthy
		case frac < c.config.DegradedBelow && worst == StatusHealthy:
			worst = StatusDegraded
		}
	}

	switch worst {
	case StatusUnhealthy:
		return Unhealthy("rate limit buckets drained", nil).WithDetails(details)
	case StatusDegraded:
		return Degraded("rate limit headroom low").WithDetails(details)
	default:
		return Healthy("rate limit headroom ok").WithDetails(details)
	}
}

// CacheChecker reports cache pressure relative to its entry bound.
type CacheChecker struct {
	store      cache.Cache
	maxEntries int
}

// NewCacheChecker creates a checker for a bounded cache.
func NewCacheChecker(store cache.Cache, maxEntries int) *CacheChecker {
	return &CacheChecker{store: store, maxEntries: maxEntries}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reports entry count against the configured bound. A full cache
// is degraded, not unhealthy: eviction keeps it functional.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no cache configured", ErrCheckFailed)
	}

	entries := c.store.Len()
	details := map[string]any{
		"entries":     entries,
		"max_entries": c.maxEntries,
	}

	if c.maxEntries > 0 && entries >= c.maxEntries {
		return Degraded(fmt.Sprintf("cache at capacity (%d entries)", entries)).WithDetails(details)
	}
	return Healthy("cache within bounds").WithDetails(details)
}
