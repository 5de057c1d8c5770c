package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Request is the provider-agnostic form of an outbound HTTP request.
// Provider façades build their native calls into this shape so the request
// pipeline stays independent of any one API family.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, ...).
	Method string

	// URL is the fully resolved request URL, without query parameters.
	URL string

	// Query holds query parameters, appended to URL in encoded form.
	Query url.Values

	// Headers are sent as-is. Later writers win on key collision.
	Headers map[string]string

	// Body is the raw request body. Nil means no body.
	Body []byte
}

// Response is the provider-agnostic form of an HTTP response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the HTTP status line text, e.g. "200 OK".
	Status string

	// Headers holds the response headers.
	Headers http.Header

	// Body is the fully read response body.
	Body []byte
}

// Header returns the first value for key, or empty string.
func (r *Response) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Transport sends a single HTTP request and returns its response.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: RoundTrip must honor cancellation and deadlines; an aborted
//   call returns the context error (possibly wrapped).
// - Errors: a non-nil error means no usable response was received. HTTP
//   error statuses are NOT errors at this layer; classification happens
//   above via Classifier.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// HTTPConfig configures HTTPTransport.
type HTTPConfig struct {
	// Client is the underlying HTTP client.
	// Default: a client with no global timeout (deadlines come from ctx).
	Client *http.Client

	// MaxBodyBytes caps how much of a response body is read.
	// Default: 8 MiB.
	MaxBodyBytes int64

	// UserAgent is sent on every request when set.
	UserAgent string
}

// HTTPTransport is the net/http backed Transport.
type HTTPTransport struct {
	config HTTPConfig
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(config HTTPConfig) *HTTPTransport {
	if config.Client == nil {
		config.Client = &http.Client{}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 8 << 20
	}
	return &HTTPTransport{config: config}
}

// RoundTrip sends the request and reads the full response body.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	target := req.URL
	if len(req.Query) > 0 {
		target = target + "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if t.config.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}

	httpResp, err := t.config.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, t.config.MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       data,
	}, nil
}

// Ensure HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)

// Func is an adapter to allow use of ordinary functions as Transports.
// Used heavily in tests to fake the HTTP boundary.
type Func func(ctx context.Context, req *Request) (*Response, error)

// RoundTrip calls f.
func (f Func) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// parseRetryAfter parses a Retry-After header value: either delay seconds
// or an HTTP date. Returns 0 when the value is absent or malformed.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := time.ParseDuration(value + "s"); err == nil && secs > 0 {
		return secs
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
