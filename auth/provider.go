package auth

import "context"

// Provider supplies authentication material for outbound API calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines (a provider
//   backed by an external token broker may block).
// - Errors: Headers failures are terminal for the call that requested
//   them; the pipeline does not retry them.
type Provider interface {
	// Headers returns the authentication headers for one request.
	// Called before every request so rotated tokens are picked up.
	Headers(ctx context.Context) (map[string]string, error)

	// Validate reports whether the credentials are currently usable.
	// Used by health checks, never on the request path.
	Validate(ctx context.Context) error
}

// ProviderFunc adapts an ordinary function to the Provider interface.
// Validate calls the function and discards the headers.
type ProviderFunc func(ctx context.Context) (map[string]string, error)

// Headers calls f.
func (f ProviderFunc) Headers(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// Validate calls f and reports its error.
func (f ProviderFunc) Validate(ctx context.Context) error {
	_, err := f(ctx)
	return err
}
