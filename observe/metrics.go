package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestLabels describes one completed (or failed) API request for
// metrics purposes.
type RequestLabels struct {
	Provider string
	Method   string
	Path     string
	Status   int

	Duration      time.Duration
	RateLimitWait time.Duration
	Attempts      int

	// CacheLookup is true when the pipeline consulted the cache
	// (cacheable GETs only); CacheHit is meaningful only then.
	CacheLookup bool
	CacheHit    bool

	// ErrorKind is the classified error kind string, empty on success.
	ErrorKind string
}

// RequestMetrics records telemetry for API requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic; recording is best-effort.
type RequestMetrics interface {
	// RecordRequest records one request outcome.
	RecordRequest(ctx context.Context, labels RequestLabels)
}

// requestMetrics is the OpenTelemetry-backed implementation.
type requestMetrics struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	retryCount   metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	durationHist metric.Float64Histogram
	limitWait    metric.Float64Histogram
}

// NewRequestMetrics creates RequestMetrics on the given meter.
func NewRequestMetrics(meter metric.Meter) (RequestMetrics, error) {
	totalCount, err := meter.Int64Counter(
		"api.request.total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"api.request.errors",
		metric.WithDescription("Total number of failed API requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"api.request.retries",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"api.cache.hits",
		metric.WithDescription("API responses served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"api.cache.misses",
		metric.WithDescription("Cacheable requests that reached the network"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"api.request.duration_ms",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	limitWait, err := meter.Float64Histogram(
		"api.ratelimit.wait_ms",
		metric.WithDescription("Time spent waiting on the rate limiter"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &requestMetrics{
		totalCount:   totalCount,
		errorCount:   errorCount,
		retryCount:   retryCount,
		cacheHits:    cacheHits,
		cacheMisses:  cacheMisses,
		durationHist: durationHist,
		limitWait:    limitWait,
	}, nil
}

// RecordRequest records one request outcome.
func (m *requestMetrics) RecordRequest(ctx context.Context, labels RequestLabels) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", labels.Provider),
		attribute.String("method", labels.Method),
		attribute.String("path", labels.Path),
	}
	if labels.Status > 0 {
		attrs = append(attrs, attribute.Int("status", labels.Status))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)

	if labels.ErrorKind != "" {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("error_kind", labels.ErrorKind))...,
		))
	}
	if labels.Attempts > 1 {
		m.retryCount.Add(ctx, int64(labels.Attempts-1), opt)
	}

	if labels.CacheLookup {
		if labels.CacheHit {
			m.cacheHits.Add(ctx, 1, opt)
		} else {
			m.cacheMisses.Add(ctx, 1, opt)
		}
	}

	m.durationHist.Record(ctx, float64(labels.Duration.Milliseconds()), opt)
	if labels.RateLimitWait > 0 {
		m.limitWait.Record(ctx, float64(labels.RateLimitWait.Milliseconds()), opt)
	}
}

// noopRequestMetrics records nothing.
type noopRequestMetrics struct{}

// NopRequestMetrics returns a RequestMetrics that records nothing.
func NopRequestMetrics() RequestMetrics {
	return noopRequestMetrics{}
}

func (noopRequestMetrics) RecordRequest(context.Context, RequestLabels) {}
