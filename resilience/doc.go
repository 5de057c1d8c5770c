// Package resilience provides the resilience primitives for outbound
// Amazon API calls: token-bucket rate limiting, retry with exponential
// backoff, circuit breaking, and bulkhead isolation.
//
// Each primitive is an explicitly constructed value owned by a provider
// façade; there are no package-level singletons, so independent façades
// (and tests) never share limiter or breaker state.
//
// # Primitives
//
//   - TokenBucket / LimiterTable: bounds the request rate per logical
//     endpoint group. Acquisition only ever delays, it never rejects:
//     callers queue until tokens refill (or their context ends).
//
//   - Retry: re-runs a fallible operation with exponentially growing,
//     jittered delays. Which failures are retryable is the caller's
//     decision via RetryIf; a server-provided retry-after hint overrides
//     the computed delay when it is larger.
//
//   - CircuitBreaker: stops issuing calls to an endpoint family after a
//     run of failures, probing for recovery after a reset timeout.
//
//   - Bulkhead: caps concurrent in-flight calls per façade.
//
// # Usage
//
//	limits := resilience.NewLimiterTable(
//	    resilience.BucketConfig{Rate: 5, Burst: 10},
//	    []resilience.LimitRule{
//	        {Pattern: "/v2/reports", Rate: 0.5, Burst: 2},
//	        {Pattern: "/v2/campaigns", Rate: 2, Burst: 4},
//	    },
//	)
//
//	if err := limits.Acquire(ctx, "/v2/campaigns/1234"); err != nil {
//	    return err
//	}
//
//	retry := resilience.NewRetry(resilience.RetryPolicy{
//	    MaxRetries: 3,
//	    BaseDelay:  100 * time.Millisecond,
//	    MaxDelay:   10 * time.Second,
//	    Multiplier: 2,
//	    Jitter:     true,
//	    RetryIf:    transportRetryable,
//	})
//	stats, err := retry.Execute(ctx, callOnce)
package resilience
