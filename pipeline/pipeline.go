package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/adscope/amzcore/auth"
	"github.com/adscope/amzcore/cache"
	"github.com/adscope/amzcore/observe"
	"github.com/adscope/amzcore/resilience"
	"github.com/adscope/amzcore/transport"
)

// Config wires one Client. Provider, BaseURL, and Auth are required;
// everything else has a working default.
type Config struct {
	// Provider names the API family, e.g. "advertising". Used as the
	// cache namespace and the provider label on logs and metrics.
	Provider string

	// BaseURL is the API root all paths are resolved against.
	BaseURL string

	// Auth supplies credentials before every request.
	Auth auth.Provider

	// Transport sends requests. Default: HTTPTransport.
	Transport transport.Transport

	// Limits is the ordered rate-limit table. Default: 1 rps, burst 1.
	Limits *resilience.LimiterTable

	// Retry is the backoff policy for retryable failures.
	Retry resilience.RetryPolicy

	// Breaker optionally refuses calls after a run of failures.
	Breaker *resilience.CircuitBreaker

	// Bulkhead optionally caps concurrent in-flight calls.
	Bulkhead *resilience.Bulkhead

	// Cache stores GET responses. Nil disables caching entirely.
	Cache cache.Cache

	// Keyer builds cache keys. Default: RequestKeyer.
	Keyer cache.Keyer

	// TTLs is the ordered TTL table. Default: nothing cacheable.
	TTLs *cache.TTLTable

	// Classifier turns responses and transport failures into the error
	// taxonomy. Default: the standard classifier.
	Classifier *transport.Classifier

	// Logger emits the one structured event per call. Default: nop.
	Logger observe.Logger

	// Metrics records per-request telemetry. Default: nop.
	Metrics observe.RequestMetrics

	// Tracer wraps each call in a span when set.
	Tracer trace.Tracer

	// Timeout bounds one call end to end, retries and backoff sleeps
	// included. Default: 30s.
	Timeout time.Duration
}

// Response is the pipeline's view of a completed call.
type Response struct {
	// Data is the decoded JSON body, or the body as a string when it is
	// not JSON. Nil for empty bodies.
	Data any

	// Raw is the response body exactly as received. Cached replays return
	// byte-identical Raw.
	Raw []byte

	StatusCode int
	Status     string
	Headers    http.Header

	// FromCache is true when the response was served without a round trip.
	FromCache bool

	// RequestID correlates this call with its log event.
	RequestID string
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Client runs the request pipeline for one provider façade.
type Client struct {
	config Config
	retry  *resilience.Retry
	group  singleflight.Group
}

// New creates a Client, filling defaults for optional collaborators.
func New(config Config) (*Client, error) {
	if config.Provider == "" {
		return nil, ErrMissingProvider
	}
	if config.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if config.Auth == nil {
		return nil, ErrMissingAuth
	}
	if config.Transport == nil {
		config.Transport = transport.NewHTTPTransport(transport.HTTPConfig{})
	}
	if config.Limits == nil {
		config.Limits = resilience.NewLimiterTable(resilience.BucketConfig{Rate: 1, Burst: 1}, nil)
	}
	if config.Keyer == nil {
		config.Keyer = cache.NewRequestKeyer()
	}
	if config.TTLs == nil {
		config.TTLs = cache.NewTTLTable(0, nil)
	}
	if config.Classifier == nil {
		config.Classifier = transport.NewClassifier(nil)
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopRequestMetrics()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		retry:  resilience.NewRetry(withRetryDefaults(config.Retry)),
	}, nil
}

// withRetryDefaults pins the retryability decision to the error taxonomy
// unless the caller supplied their own.
func withRetryDefaults(policy resilience.RetryPolicy) resilience.RetryPolicy {
	if policy.RetryIf == nil {
		policy.RetryIf = transport.IsRetryable
	}
	return policy
}

// Get issues a GET through the pipeline.
func (c *Client) Get(ctx context.Context, path string, opts CallOptions) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body []byte, opts CallOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT through the pipeline.
func (c *Client) Put(ctx context.Context, path string, body []byte, opts CallOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE through the pipeline.
func (c *Client) Delete(ctx context.Context, path string, opts CallOptions) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts)
}

// RateLimitStatus reports the bucket governing path without consuming
// tokens, for health and backpressure decisions.
func (c *Client) RateLimitStatus(path string) resilience.BucketStatus {
	return c.config.Limits.Status(path)
}

// Invalidate removes every cached entry under path and returns how many
// were removed.
func (c *Client) Invalidate(ctx context.Context, path string) int {
	if c.config.Cache == nil {
		return 0
	}
	return c.config.Cache.DeletePrefix(ctx, c.config.Keyer.Prefix(c.config.Provider, path))
}

// netResult carries the network leg's outcome across the singleflight
// boundary.
type netResult struct {
	resp  *transport.Response
	stats resilience.Stats
	err   error
}

// Do runs one call through the full pipeline. The error, when non-nil,
// is an auth error or a classified *transport.Error.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, opts CallOptions) (*Response, error) {
	start := time.Now()
	reqID := requestID(ctx)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var span trace.Span
	if c.config.Tracer != nil {
		ctx, span = c.config.Tracer.Start(ctx, spanName(c.config.Provider, opts.Operation, method, path))
		defer span.End()
	}

	// Rate limiting comes first: a full cache does not entitle a caller
	// to hammer the limiter-protected endpoint when it misses.
	waitStart := time.Now()
	if err := c.config.Limits.Acquire(ctx, path); err != nil {
		cerr := c.config.Classifier.Classify(nil, err, reqID)
		c.finish(ctx, span, callEvent{
			requestID: reqID, operation: opts.Operation, method: method, path: path,
			duration: time.Since(start), wait: time.Since(waitStart), err: cerr,
		})
		return nil, cerr
	}
	wait := time.Since(waitStart)

	cacheable := method == http.MethodGet && c.config.Cache != nil &&
		(opts.CacheTTL > 0 || c.config.TTLs.Cacheable(path))

	var key string
	if method == http.MethodGet {
		if k, err := c.config.Keyer.Key(c.config.Provider, method, path, opts.Query); err == nil {
			key = k
		} else {
			cacheable = false
		}
	}

	lookup := cacheable && !opts.BypassCache
	if lookup {
		if raw, ok := c.config.Cache.Get(ctx, key); ok {
			resp := &Response{
				Data:       parseBody(raw),
				Raw:        raw,
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				FromCache:  true,
				RequestID:  reqID,
			}
			c.finish(ctx, span, callEvent{
				requestID: reqID, operation: opts.Operation, method: method, path: path,
				status: resp.StatusCode, duration: time.Since(start), wait: wait,
				cacheLookup: true, cacheHit: true,
			})
			return resp, nil
		}
	}

	// Identical concurrent GETs share one round trip.
	var res netResult
	if method == http.MethodGet && key != "" {
		v, _, _ := c.group.Do(key, func() (any, error) {
			return c.roundTrip(ctx, method, path, body, opts, reqID), nil
		})
		res = v.(netResult)
	} else {
		res = c.roundTrip(ctx, method, path, body, opts, reqID)
	}

	if res.err != nil {
		c.finish(ctx, span, callEvent{
			requestID: reqID, operation: opts.Operation, method: method, path: path,
			status: statusOf(res.resp), duration: time.Since(start), wait: wait,
			attempts: res.stats.Attempts, cacheLookup: lookup, err: res.err,
		})
		return nil, res.err
	}

	raw := res.resp.Body

	if cacheable {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = c.config.TTLs.TTL(path)
		}
		if err := c.config.Cache.Set(ctx, key, raw, ttl); err != nil {
			// Non-fatal: the call succeeded even if its result could not
			// be cached.
			c.config.Logger.Warn(ctx, "cache write failed",
				observe.Field{Key: "request_id", Value: reqID},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	if method != http.MethodGet && c.config.Cache != nil {
		prefixes := opts.InvalidatePrefixes
		if len(prefixes) == 0 {
			prefixes = []string{path}
		}
		for _, p := range prefixes {
			c.config.Cache.DeletePrefix(ctx, c.config.Keyer.Prefix(c.config.Provider, p))
		}
	}

	out := &Response{
		Data:       parseBody(raw),
		Raw:        raw,
		StatusCode: res.resp.StatusCode,
		Status:     res.resp.Status,
		Headers:    res.resp.Headers,
		RequestID:  reqID,
	}
	c.finish(ctx, span, callEvent{
		requestID: reqID, operation: opts.Operation, method: method, path: path,
		status: out.StatusCode, duration: time.Since(start), wait: wait,
		attempts: res.stats.Attempts, cacheLookup: lookup,
	})
	return out, nil
}

// roundTrip runs the authenticated, retry-wrapped network leg, inside
// the bulkhead and circuit breaker when configured.
func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, opts CallOptions, reqID string) netResult {
	headers, err := c.config.Auth.Headers(ctx)
	if err != nil {
		// Auth failures are terminal for this call and stay unclassified:
		// they never reached the wire.
		return netResult{err: err}
	}

	merged := make(map[string]string, len(headers)+len(opts.Headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	for k, v := range opts.Headers {
		merged[k] = v
	}
	if body != nil && merged["Content-Type"] == "" {
		merged["Content-Type"] = "application/json"
	}

	req := &transport.Request{
		Method:  method,
		URL:     strings.TrimRight(c.config.BaseURL, "/") + path,
		Query:   opts.Query,
		Headers: merged,
		Body:    body,
	}

	var resp *transport.Response
	op := func(ctx context.Context) error {
		r, rtErr := c.config.Transport.RoundTrip(ctx, req)
		if cerr := c.config.Classifier.Classify(r, rtErr, reqID); cerr != nil {
			return cerr
		}
		resp = r
		return nil
	}

	var stats resilience.Stats
	wrapped := func(ctx context.Context) error {
		var execErr error
		stats, execErr = c.retry.Execute(ctx, op)
		return execErr
	}

	switch {
	case c.config.Bulkhead != nil && c.config.Breaker != nil:
		err = c.config.Bulkhead.Execute(ctx, func(ctx context.Context) error {
			return c.config.Breaker.Execute(ctx, wrapped)
		})
	case c.config.Bulkhead != nil:
		err = c.config.Bulkhead.Execute(ctx, wrapped)
	case c.config.Breaker != nil:
		err = c.config.Breaker.Execute(ctx, wrapped)
	default:
		err = wrapped(ctx)
	}

	return netResult{resp: resp, stats: stats, err: err}
}

// callEvent is everything the one log line and metrics record carry.
type callEvent struct {
	requestID   string
	operation   string
	method      string
	path        string
	status      int
	duration    time.Duration
	wait        time.Duration
	attempts    int
	cacheLookup bool
	cacheHit    bool
	err         error
}

// finish emits the single structured log event for the call, records
// metrics, and closes out the span.
func (c *Client) finish(ctx context.Context, span trace.Span, ev callEvent) {
	kindName := ""
	if ev.err != nil {
		switch kind, ok := transport.KindOf(ev.err); {
		case ok:
			kindName = kind.String()
		case errors.Is(ev.err, resilience.ErrCircuitOpen):
			kindName = "circuit_open"
		case errors.Is(ev.err, resilience.ErrBulkheadFull):
			kindName = "bulkhead_full"
		default:
			kindName = "auth_error"
		}
		if ev.status == 0 {
			var terr *transport.Error
			if errors.As(ev.err, &terr) {
				ev.status = terr.Status
			}
		}
	}

	fields := []observe.Field{
		{Key: "request_id", Value: ev.requestID},
		{Key: "provider", Value: c.config.Provider},
		{Key: "method", Value: ev.method},
		{Key: "path", Value: ev.path},
		{Key: "status", Value: ev.status},
		{Key: "duration_ms", Value: ev.duration.Milliseconds()},
		{Key: "attempts", Value: ev.attempts},
		{Key: "rate_limit_wait_ms", Value: ev.wait.Milliseconds()},
	}
	if ev.operation != "" {
		fields = append(fields, observe.Field{Key: "operation", Value: ev.operation})
	}
	if ev.cacheLookup {
		cacheState := "miss"
		if ev.cacheHit {
			cacheState = "hit"
		}
		fields = append(fields, observe.Field{Key: "cache", Value: cacheState})
	}

	if ev.err != nil {
		fields = append(fields,
			observe.Field{Key: "error", Value: ev.err.Error()},
			observe.Field{Key: "error_kind", Value: kindName},
		)
		c.config.Logger.Error(ctx, "request failed", fields...)
	} else {
		c.config.Logger.Info(ctx, "request complete", fields...)
	}

	c.config.Metrics.RecordRequest(ctx, observe.RequestLabels{
		Provider:      c.config.Provider,
		Method:        ev.method,
		Path:          ev.path,
		Status:        ev.status,
		Duration:      ev.duration,
		RateLimitWait: ev.wait,
		Attempts:      ev.attempts,
		CacheLookup:   ev.cacheLookup,
		CacheHit:      ev.cacheHit,
		ErrorKind:     kindName,
	})

	if span != nil {
		span.SetAttributes(
			attribute.String("provider", c.config.Provider),
			attribute.String("http.method", ev.method),
			attribute.String("http.path", ev.path),
			attribute.Int("http.status_code", ev.status),
			attribute.Int("attempts", ev.attempts),
			attribute.Bool("cache.hit", ev.cacheHit),
		)
		if ev.err != nil {
			span.SetStatus(codes.Error, ev.err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

func spanName(provider, operation, method, path string) string {
	if operation != "" {
		return provider + "." + operation
	}
	return provider + " " + method + " " + path
}

func statusOf(resp *transport.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// parseBody decodes JSON bodies, falling back to the raw text for
// non-JSON payloads (some report endpoints return CSV or plain text).
func parseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
