// Package health reports the operational readiness of the request core.
//
// A Checker is any component that can report its health state: Healthy,
// Degraded, or Unhealthy. The package ships domain checkers for the
// pieces that matter before sending traffic at an upstream API:
// credential validity, rate limiter saturation, and cache pressure.
//
//	agg := health.NewAggregator()
//	agg.Register("credentials", health.NewCredentialsChecker(provider))
//	agg.Register("ratelimit", health.NewRateLimitChecker(limits, "/v2/campaigns"))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// HTTP handlers for liveness, readiness, and detailed status are
// provided for embedding in a host application:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
package health
