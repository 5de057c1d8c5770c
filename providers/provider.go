package providers

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adscope/amzcore/auth"
	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/config"
	"github.com/adscope/amzcore/observe"
	"github.com/adscope/amzcore/pipeline"
	"github.com/adscope/amzcore/resilience"
	"github.com/adscope/amzcore/transport"
)

// Options configure any façade. Auth is required; everything else
// defaults to the family's built-in tables.
type Options struct {
	// Auth supplies credentials for every call.
	Auth auth.Provider

	// BaseURL overrides the family's default API root.
	BaseURL string

	// Transport overrides the HTTP transport, mainly for tests.
	Transport transport.Transport

	// Logger, Metrics, and Tracer plug the façade into the host's
	// telemetry. All optional.
	Logger  observe.Logger
	Metrics observe.RequestMetrics
	Tracer  trace.Tracer

	// Timeout bounds one call end to end. Zero keeps the family default.
	Timeout time.Duration

	// Retry overrides the family's retry policy when non-nil.
	Retry *resilience.RetryPolicy

	// RateLimits replaces the family's ordered rate limit rules.
	RateLimits []resilience.LimitRule

	// CacheTTLs replaces the family's ordered TTL rules.
	CacheTTLs []cache.TTLRule

	// CacheEntries bounds the response cache. Default: 1024.
	// Negative disables caching.
	CacheEntries int

	// MaxConcurrent caps in-flight calls via a bulkhead when positive.
	MaxConcurrent int64
}

// FromConfig builds Options from a loaded provider configuration,
// constructing a static credential provider from its credentials map.
func FromConfig(pc config.ProviderConfig) (Options, error) {
	static := auth.NewStatic(auth.StaticConfig{
		ClientID:    pc.Credentials["client_id"],
		AccessToken: pc.Credentials["access_token"],
		ProfileID:   pc.Credentials["profile_id"],
	})

	opts := Options{
		Auth:    static,
		BaseURL: pc.BaseURL,
		Timeout: pc.Timeout,
	}
	if pc.Retry.MaxRetries > 0 || pc.Retry.BaseDelay > 0 {
		opts.Retry = &resilience.RetryPolicy{
			MaxRetries: pc.Retry.MaxRetries,
			BaseDelay:  pc.Retry.BaseDelay,
			MaxDelay:   pc.Retry.MaxDelay,
			Jitter:     true,
		}
	}
	for _, rule := range pc.RateLimits {
		opts.RateLimits = append(opts.RateLimits, resilience.LimitRule{
			Pattern: rule.Pattern,
			Rate:    rule.Rate,
			Burst:   rule.Burst,
		})
	}
	for _, rule := range pc.CacheTTLs {
		opts.CacheTTLs = append(opts.CacheTTLs, cache.TTLRule{
			Pattern: rule.Pattern,
			TTL:     rule.TTL,
		})
	}
	return opts, nil
}

// familyDefaults is what a façade ships when Options leave a knob unset.
type familyDefaults struct {
	name       string
	baseURL    string
	fallback   resilience.BucketConfig
	limits     []resilience.LimitRule
	defaultTTL time.Duration
	ttls       []cache.TTLRule
	retry      resilience.RetryPolicy
	timeout    time.Duration
}

// newClient assembles the pipeline for one façade from its defaults and
// the caller's options.
func newClient(def familyDefaults, opts Options) (*pipeline.Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = def.baseURL
	}

	limits := def.limits
	if opts.RateLimits != nil {
		limits = opts.RateLimits
	}

	ttls := def.ttls
	if opts.CacheTTLs != nil {
		ttls = opts.CacheTTLs
	}

	retry := def.retry
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = def.timeout
	}

	var store cache.Cache
	if opts.CacheEntries >= 0 {
		entries := opts.CacheEntries
		if entries == 0 {
			entries = 1024
		}
		store = cache.NewMemory(cache.MemoryConfig{MaxEntries: entries})
	}

	var bulkhead *resilience.Bulkhead
	if opts.MaxConcurrent > 0 {
		bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: opts.MaxConcurrent,
			Wait:          true,
		})
	}

	return pipeline.New(pipeline.Config{
		Provider:  def.name,
		BaseURL:   baseURL,
		Auth:      opts.Auth,
		Transport: opts.Transport,
		Limits:    resilience.NewLimiterTable(def.fallback, limits),
		Retry:     retry,
		Bulkhead:  bulkhead,
		Cache:     store,
		TTLs:      cache.NewTTLTable(def.defaultTTL, ttls),
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		Tracer:    opts.Tracer,
		Timeout:   timeout,
	})
}
