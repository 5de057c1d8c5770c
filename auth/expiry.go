package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryGuard wraps a Provider and rejects bearer tokens whose exp claim
// has already passed. Signature verification belongs to Amazon, not to
// us, so the token is only decoded; opaque (non-JWT) tokens pass through
// untouched.
type ExpiryGuard struct {
	inner Provider

	// Leeway treats tokens expiring within this window as already
	// expired, covering request flight time.
	leeway time.Duration

	parser *jwt.Parser
	now    func() time.Time
}

// NewExpiryGuard wraps inner. A token expiring within leeway of now is
// rejected with ErrTokenExpired.
func NewExpiryGuard(inner Provider, leeway time.Duration) *ExpiryGuard {
	if leeway < 0 {
		leeway = 0
	}
	return &ExpiryGuard{
		inner:  inner,
		leeway: leeway,
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// Headers returns the inner provider's headers after the expiry check.
func (g *ExpiryGuard) Headers(ctx context.Context) (map[string]string, error) {
	headers, err := g.inner.Headers(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.checkBearer(headers[HeaderAuthorization]); err != nil {
		return nil, err
	}
	return headers, nil
}

// Validate combines the inner validation with the expiry check.
func (g *ExpiryGuard) Validate(ctx context.Context) error {
	if err := g.inner.Validate(ctx); err != nil {
		return err
	}
	headers, err := g.inner.Headers(ctx)
	if err != nil {
		return err
	}
	return g.checkBearer(headers[HeaderAuthorization])
}

func (g *ExpiryGuard) checkBearer(authorization string) error {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := g.parser.ParseUnverified(token, claims); err != nil {
		// Opaque token: nothing to check locally.
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if g.now().Add(g.leeway).After(exp.Time) {
		return ErrTokenExpired
	}
	return nil
}

// Ensure ExpiryGuard implements Provider
var _ Provider = (*ExpiryGuard)(nil)
