package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adscope/amzcore/secret"
)

const sampleYAML = `
service:
  name: adscope-sync
  version: 1.4.0

observe:
  logging:
    enabled: true
    level: info

providers:
  advertising:
    base_url: https://advertising-api.amazon.com
    timeout: 45s
    retry:
      max_retries: 4
      base_delay: 200ms
      max_delay: 10s
    rate_limits:
      - pattern: /v2/sp/campaigns
        rate: 2
        burst: 4
      - pattern: /v2
        rate: 5
        burst: 10
    cache_ttls:
      - pattern: /v2/profiles
        ttl: 5m
    credentials:
      client_id: amzn1.application-oa2-client.abc
      access_token: secretref:vault:ads/token
      profile_id: "12345"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amzcore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad_FullConfig verifies YAML loading, defaults, and secret resolution.
func TestLoad_FullConfig(t *testing.T) {
	path := writeConfigFile(t, sampleYAML)

	resolver := secret.NewResolver(true, secret.NewStaticProvider("vault", map[string]string{
		"ads/token": "Atza|resolved",
	}))

	cfg, err := Load(context.Background(), LoaderOptions{
		Paths:    []string{path},
		Resolver: resolver,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.Name != "adscope-sync" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "adscope-sync")
	}
	if cfg.Service.Environment != "production" {
		t.Errorf("Service.Environment = %q, want default %q", cfg.Service.Environment, "production")
	}
	if cfg.Observe.ServiceName != "adscope-sync" {
		t.Errorf("Observe.ServiceName = %q, want inherited %q", cfg.Observe.ServiceName, "adscope-sync")
	}

	ads, ok := cfg.Providers["advertising"]
	if !ok {
		t.Fatal("missing advertising provider")
	}
	if ads.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", ads.Timeout)
	}
	if ads.Retry.MaxRetries != 4 {
		t.Errorf("Retry.MaxRetries = %d, want 4", ads.Retry.MaxRetries)
	}
	if len(ads.RateLimits) != 2 || ads.RateLimits[0].Pattern != "/v2/sp/campaigns" {
		t.Errorf("RateLimits = %+v, want ordered rules starting with /v2/sp/campaigns", ads.RateLimits)
	}
	if len(ads.CacheTTLs) != 1 || ads.CacheTTLs[0].TTL != 5*time.Minute {
		t.Errorf("CacheTTLs = %+v, want one 5m rule", ads.CacheTTLs)
	}
	if ads.Credentials["access_token"] != "Atza|resolved" {
		t.Errorf("access_token = %q, want resolved value", ads.Credentials["access_token"])
	}
}

// TestLoad_Defaults verifies zero values are filled.
func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: adscope-sync
providers:
  dsp:
    base_url: https://advertising-api.amazon.com
`)

	cfg, err := Load(context.Background(), LoaderOptions{Paths: []string{path}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dsp := cfg.Providers["dsp"]
	if dsp.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", dsp.Timeout)
	}
	if dsp.Retry.BaseDelay != 100*time.Millisecond {
		t.Errorf("Retry.BaseDelay = %v, want default 100ms", dsp.Retry.BaseDelay)
	}
	if dsp.Retry.MaxDelay != 30*time.Second {
		t.Errorf("Retry.MaxDelay = %v, want default 30s", dsp.Retry.MaxDelay)
	}
}

// TestLoad_MissingServiceName verifies validation rejects a nameless config.
func TestLoad_MissingServiceName(t *testing.T) {
	path := writeConfigFile(t, `
providers:
  advertising:
    base_url: https://advertising-api.amazon.com
`)

	if _, err := Load(context.Background(), LoaderOptions{Paths: []string{path}}); err == nil {
		t.Error("expected error for missing service.name")
	}
}

// TestLoad_InvalidBaseURL verifies URL validation.
func TestLoad_InvalidBaseURL(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: adscope-sync
providers:
  advertising:
    base_url: "not a url"
`)

	if _, err := Load(context.Background(), LoaderOptions{Paths: []string{path}}); err == nil {
		t.Error("expected error for invalid base_url")
	}
}

// TestLoad_EnvOverride verifies AMZCORE_ environment overrides.
func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: from-file
`)
	t.Setenv("AMZCORE_SERVICE_NAME", "from-env")

	cfg, err := Load(context.Background(), LoaderOptions{Paths: []string{path}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Name != "from-env" {
		t.Errorf("Service.Name = %q, want env override %q", cfg.Service.Name, "from-env")
	}
}

// TestLoad_MissingFilesSkipped verifies nonexistent paths are not errors.
func TestLoad_MissingFilesSkipped(t *testing.T) {
	t.Setenv("AMZCORE_SERVICE_NAME", "env-only")

	cfg, err := Load(context.Background(), LoaderOptions{
		Paths: []string{"/nonexistent/amzcore.yaml"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Name != "env-only" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "env-only")
	}
}

// TestValidate_NegativeRetries verifies retry bounds checking.
func TestValidate_NegativeRetries(t *testing.T) {
	cfg := Config{
		Service: ServiceConfig{Name: "x"},
		Providers: map[string]ProviderConfig{
			"advertising": {
				BaseURL: "https://advertising-api.amazon.com",
				Retry:   RetryConfig{MaxRetries: -1},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative max_retries")
	}
}
