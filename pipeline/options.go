package pipeline

import (
	"net/url"
	"time"
)

// CallOptions tune one call. The zero value is valid.
type CallOptions struct {
	// Operation names the call for logs, traces, and metrics,
	// e.g. "ListCampaigns".
	Operation string

	// Headers are merged over the auth headers for this call.
	Headers map[string]string

	// Query holds query parameters.
	Query url.Values

	// Timeout overrides the client default for this call. It bounds the
	// whole call, every retry attempt and backoff sleep included.
	Timeout time.Duration

	// BypassCache skips the cache lookup (the response is still written
	// back when cacheable).
	BypassCache bool

	// CacheTTL overrides the TTL table for this call when positive.
	CacheTTL time.Duration

	// InvalidatePrefixes lists the resource paths whose cached entries a
	// successful mutation removes. Empty on a non-GET call means the
	// request path itself is invalidated.
	InvalidatePrefixes []string
}
