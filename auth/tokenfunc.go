package auth

import "context"

// TokenFunc adapts an external token source to the Provider interface.
// The source is consulted on every request, so rotated or refreshed
// tokens are picked up without reconstructing the provider. Token
// acquisition itself stays outside this package.
type TokenFunc struct {
	// ClientID is the LWA client identifier. Required.
	ClientID string

	// ProfileID is the advertising profile scope. Optional.
	ProfileID string

	// Source returns the current bearer token.
	Source func(ctx context.Context) (string, error)
}

// Headers returns the Amazon Advertising header set with a fresh token.
func (t TokenFunc) Headers(ctx context.Context) (map[string]string, error) {
	if t.ClientID == "" || t.Source == nil {
		return nil, ErrMissingCredentials
	}
	token, err := t.Source(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	headers := map[string]string{
		HeaderClientID:      t.ClientID,
		HeaderAuthorization: "Bearer " + token,
	}
	if t.ProfileID != "" {
		headers[HeaderScope] = t.ProfileID
	}
	return headers, nil
}

// Validate checks that a token can currently be produced.
func (t TokenFunc) Validate(ctx context.Context) error {
	_, err := t.Headers(ctx)
	return err
}

var _ Provider = TokenFunc{}
