package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/adscope/amzcore/secret"
)

// LoaderOptions controls how configuration is assembled.
type LoaderOptions struct {
	// Paths are candidate config files, tried in order. Missing files
	// are skipped; later files merge over earlier ones.
	Paths []string

	// Resolver resolves secretref: and ${ENV} values in credentials.
	// Nil means credentials are taken literally.
	Resolver *secret.Resolver
}

// DefaultPaths are the config file locations tried when none are given.
var DefaultPaths = []string{
	"./amzcore.yaml",
	"./configs/amzcore.yaml",
	"/etc/amzcore/config.yaml",
}

// Load reads, merges, defaults, resolves, and validates configuration.
// Environment variables with the AMZCORE_ prefix override file values,
// with dots mapped to underscores (AMZCORE_SERVICE_NAME, etc.).
func Load(ctx context.Context, opts LoaderOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AMZCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overrides keys viper knows about, so the scalar
	// keys are registered with empty defaults to make env-only setups work.
	v.SetDefault("service.name", "")
	v.SetDefault("service.version", "")
	v.SetDefault("service.environment", "")
	v.SetDefault("observe.logging.level", "")

	paths := opts.Paths
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.applyDefaults()

	if opts.Resolver != nil {
		for name, provider := range cfg.Providers {
			resolved, err := opts.Resolver.ResolveMap(ctx, provider.Credentials)
			if err != nil {
				return nil, fmt.Errorf("config: providers.%s credentials: %w", name, err)
			}
			provider.Credentials = resolved
			cfg.Providers[name] = provider
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
