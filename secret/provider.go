package secret

import (
	"context"
	"fmt"
	"os"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log
// secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves refs as environment variable names.
type EnvProvider struct{}

// NewEnvProvider creates a provider backed by the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve looks up ref in the environment. Missing variables error so a
// misconfigured deployment fails at startup, not on the first request.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", ref)
	}
	return value, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// StaticProvider resolves refs from an in-memory map, for tests and
// embedded use.
type StaticProvider struct {
	name   string
	values map[string]string
}

// NewStaticProvider creates a provider over a fixed value set.
func NewStaticProvider(name string, values map[string]string) *StaticProvider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticProvider{name: name, values: copied}
}

// Name returns the provider name given at construction.
func (p *StaticProvider) Name() string { return p.name }

// Resolve looks up ref in the static value set.
func (p *StaticProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := p.values[ref]
	if !ok {
		return "", fmt.Errorf("secret %q not found in provider %q", ref, p.name)
	}
	return value, nil
}

// Close is a no-op.
func (p *StaticProvider) Close() error { return nil }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*StaticProvider)(nil)
)
