package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HRDESK_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HRDESK_CONFIG is set
//  3. env (prefix HRDESK_)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// HRDESK_UPSTREAM_BASE_URL -> upstream_base_url (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot recover from.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("upstream_base_url must be an absolute http(s) URL, got %q", c.UpstreamBaseURL)
	}
	if c.DefaultPageSize <= 0 {
		return invalid("default_page_size must be positive")
	}
	if c.OptionPageSize <= 0 {
		return invalid("option_page_size must be positive")
	}
	if c.WorkerCount <= 0 {
		return invalid("worker_count must be positive")
	}
	if c.QueueSize <= 0 {
		return invalid("queue_size must be positive")
	}
	if c.UpstreamTimeoutMS <= 0 {
		return invalid("upstream_timeout_ms must be positive")
	}
	if c.BulkTimeoutMS <= 0 {
		return invalid("bulk_timeout_ms must be positive")
	}
	if c.OptionCacheTTLMS < 0 || c.SearchDebounceMS < 0 || c.SubmitGuardSize < 0 {
		return invalid("durations and sizes must not be negative")
	}
	return nil
}
