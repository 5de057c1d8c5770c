package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/adscope/amzcore/observe"
)

// Config is the root configuration for the request core.
type Config struct {
	Service   ServiceConfig             `mapstructure:"service"`
	Observe   observe.Config            `mapstructure:"observe"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ServiceConfig identifies the host application.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ProviderConfig configures one upstream API provider.
type ProviderConfig struct {
	// BaseURL is the API root, e.g. https://advertising-api.amazon.com.
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds one call end to end, retries included.
	// Default: 30s
	Timeout time.Duration `mapstructure:"timeout"`

	Retry RetryConfig `mapstructure:"retry"`

	// RateLimits override the provider's built-in limit table. Order is
	// significant: the first matching pattern wins.
	RateLimits []RateLimitRule `mapstructure:"rate_limits"`

	// CacheTTLs override the provider's built-in TTL table.
	CacheTTLs []CacheTTLRule `mapstructure:"cache_ttls"`

	// Credentials hold client_id, access_token, profile_id and friends.
	// Values may be secretref: references or ${ENV} expansions.
	Credentials map[string]string `mapstructure:"credentials"`
}

// RetryConfig configures the retry executor for one provider.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// RateLimitRule is one entry of an ordered rate limit table.
type RateLimitRule struct {
	Pattern string  `mapstructure:"pattern"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

// CacheTTLRule is one entry of an ordered cache TTL table.
type CacheTTLRule struct {
	Pattern string        `mapstructure:"pattern"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Validate checks the configuration before any client is constructed.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("config: service.name is required")
	}
	if c.Observe.ServiceName != "" {
		if err := c.Observe.Validate(); err != nil {
			return err
		}
	}
	for name, provider := range c.Providers {
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p ProviderConfig) validate(name string) error {
	if p.BaseURL == "" {
		return fmt.Errorf("config: providers.%s.base_url is required", name)
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: providers.%s.base_url %q is not a valid URL", name, p.BaseURL)
	}
	if p.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: providers.%s.retry.max_retries must not be negative", name)
	}
	for i, rule := range p.RateLimits {
		if rule.Pattern == "" {
			return fmt.Errorf("config: providers.%s.rate_limits[%d].pattern is required", name, i)
		}
		if rule.Rate <= 0 {
			return fmt.Errorf("config: providers.%s.rate_limits[%d].rate must be positive", name, i)
		}
	}
	for i, rule := range p.CacheTTLs {
		if rule.Pattern == "" {
			return fmt.Errorf("config: providers.%s.cache_ttls[%d].pattern is required", name, i)
		}
	}
	return nil
}

// applyDefaults fills zero values after unmarshalling.
func (c *Config) applyDefaults() {
	if c.Service.Environment == "" {
		c.Service.Environment = "production"
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = c.Service.Name
	}
	if c.Observe.Version == "" {
		c.Observe.Version = c.Service.Version
	}
	for name, provider := range c.Providers {
		if provider.Timeout <= 0 {
			provider.Timeout = 30 * time.Second
		}
		if provider.Retry.BaseDelay <= 0 {
			provider.Retry.BaseDelay = 100 * time.Millisecond
		}
		if provider.Retry.MaxDelay <= 0 {
			provider.Retry.MaxDelay = 30 * time.Second
		}
		c.Providers[name] = provider
	}
}
