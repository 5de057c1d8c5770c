package auth

import "context"

// Standard Amazon Advertising API header names.
const (
	HeaderClientID      = "Amazon-Advertising-API-ClientId"
	HeaderScope         = "Amazon-Advertising-API-Scope"
	HeaderAuthorization = "Authorization"
)

// StaticConfig configures a Static provider.
type StaticConfig struct {
	// ClientID is the LWA client identifier. Required.
	ClientID string

	// AccessToken is the bearer token. Required.
	AccessToken string

	// ProfileID is the advertising profile scope. Optional; some API
	// families (DSP entity-scoped calls) do not use it.
	ProfileID string

	// Extra headers are sent verbatim with every request.
	Extra map[string]string
}

// Static provides fixed, pre-provisioned credentials. Rotation is the
// caller's problem: construct a new Static (or use TokenFunc) when the
// token changes.
type Static struct {
	config StaticConfig
}

// NewStatic creates a static credential provider.
func NewStatic(config StaticConfig) *Static {
	return &Static{config: config}
}

// Headers returns the Amazon Advertising header set.
func (s *Static) Headers(_ context.Context) (map[string]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	headers := map[string]string{
		HeaderClientID:      s.config.ClientID,
		HeaderAuthorization: "Bearer " + s.config.AccessToken,
	}
	if s.config.ProfileID != "" {
		headers[HeaderScope] = s.config.ProfileID
	}
	for k, v := range s.config.Extra {
		headers[k] = v
	}
	return headers, nil
}

// Validate reports whether the required fields are present.
func (s *Static) Validate(_ context.Context) error {
	return s.check()
}

func (s *Static) check() error {
	if s.config.ClientID == "" || s.config.AccessToken == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Ensure Static implements Provider
var _ Provider = (*Static)(nil)
