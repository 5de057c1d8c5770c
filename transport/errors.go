package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

// Kind is the closed set of failure classifications.
type Kind int

const (
	// KindRateLimited means the server rejected the call with HTTP 429.
	KindRateLimited Kind = iota
	// KindServerError means a retryable 5xx response.
	KindServerError
	// KindClientError means a terminal 4xx (other than 429) or other
	// non-retryable HTTP status.
	KindClientError
	// KindNetworkError means the call failed below HTTP: connection,
	// DNS, timeout, or cancellation.
	KindNetworkError
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindClientError:
		return "client_error"
	case KindNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Error is a classified request failure. It is the only error type the
// pipeline surfaces to provider façades.
type Error struct {
	// Kind is the classification.
	Kind Kind

	// Status is the HTTP status code, when the failure had one.
	Status int

	// RetryAfter is the server-provided backoff hint (429 only).
	RetryAfter time.Duration

	// RequestID correlates the failure with pipeline log events.
	RequestID string

	// Body is a short excerpt of the response body, for diagnostics.
	Body string

	// Cause is the underlying transport error, for network failures.
	Cause error

	// retryable records the classifier's decision.
	retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindNetworkError:
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Cause)
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("transport: %s (status %d, retry after %s)", e.Kind, e.Status, e.RetryAfter)
		}
		return fmt.Sprintf("transport: %s (status %d)", e.Kind, e.Status)
	default:
		return fmt.Sprintf("transport: %s (status %d)", e.Kind, e.Status)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure may be retried by policy.
func (e *Error) Retryable() bool {
	return e.retryable
}

// RetryAfterHint exposes the server backoff hint to retry logic without
// the resilience package importing transport.
func (e *Error) RetryAfterHint() (time.Duration, bool) {
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// StatusCode returns the HTTP status code, or 0 for network failures.
func (e *Error) StatusCode() int {
	return e.Status
}

// IsRetryable reports whether err is a classified, retryable failure.
// Unclassified errors are never retryable.
func IsRetryable(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Retryable()
}

// KindOf returns the classification of err and true, or (0, false) when
// err is not a classified transport error.
func KindOf(err error) (Kind, bool) {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind, true
	}
	return 0, false
}

// ClassifierConfig configures error classification.
type ClassifierConfig struct {
	// RetryableStatusCodes are HTTP statuses classified as retryable
	// server errors. 429 is always handled separately.
	// Default: 500, 502, 503, 504.
	RetryableStatusCodes []int

	// BodyExcerptBytes caps how much response body is kept on the error.
	// Default: 512.
	BodyExcerptBytes int
}

// Classifier turns raw HTTP results and connection failures into the
// closed error taxonomy. It is the single component that decides
// retryability.
type Classifier struct {
	retryable map[int]bool
	excerpt   int
	now       func() time.Time
}

// NewClassifier creates a classifier. A nil config uses defaults.
func NewClassifier(config *ClassifierConfig) *Classifier {
	codes := []int{500, 502, 503, 504}
	excerpt := 512
	if config != nil {
		if config.RetryableStatusCodes != nil {
			codes = config.RetryableStatusCodes
		}
		if config.BodyExcerptBytes > 0 {
			excerpt = config.BodyExcerptBytes
		}
	}
	retryable := make(map[int]bool, len(codes))
	for _, c := range codes {
		retryable[c] = true
	}
	return &Classifier{
		retryable: retryable,
		excerpt:   excerpt,
		now:       time.Now,
	}
}

// Classify maps a round-trip outcome onto the taxonomy. It returns nil for
// successful responses (status < 400). requestID is attached to the error
// for log correlation.
func (c *Classifier) Classify(resp *Response, rawErr error, requestID string) error {
	if rawErr != nil {
		return &Error{
			Kind:      KindNetworkError,
			RequestID: requestID,
			Cause:     rawErr,
			retryable: isTransient(rawErr),
		}
	}

	if resp == nil {
		return &Error{
			Kind:      KindNetworkError,
			RequestID: requestID,
			Cause:     errors.New("transport: no response"),
		}
	}

	switch {
	case resp.StatusCode < 400:
		return nil

	case resp.StatusCode == 429:
		return &Error{
			Kind:       KindRateLimited,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header("Retry-After"), c.now()),
			RequestID:  requestID,
			Body:       c.bodyExcerpt(resp),
			retryable:  true,
		}

	case c.retryable[resp.StatusCode]:
		return &Error{
			Kind:      KindServerError,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Body:      c.bodyExcerpt(resp),
			retryable: true,
		}

	default:
		return &Error{
			Kind:      KindClientError,
			Status:    resp.StatusCode,
			RequestID: requestID,
			Body:      c.bodyExcerpt(resp),
		}
	}
}

func (c *Classifier) bodyExcerpt(resp *Response) string {
	if len(resp.Body) == 0 {
		return ""
	}
	if len(resp.Body) > c.excerpt {
		return string(resp.Body[:c.excerpt])
	}
	return string(resp.Body)
}

// isTransient reports whether a connection-level failure is worth
// retrying. Context cancellation and deadline expiry are terminal: the
// caller's deadline has passed, retrying with the same context fails
// immediately.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	return false
}
