// Package config defines the console configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and HRDESK_ environment variables on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the REST backend root, e.g. "http://localhost:8000".
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// UpstreamToken is sent as a bearer token when set.
	UpstreamToken string `koanf:"upstream_token"`

	// UpstreamTimeoutMS bounds every backend round trip.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// DefaultPageSize is the catalog table page size before the user picks one.
	DefaultPageSize int `koanf:"default_page_size"`

	// OptionPageSize caps how many options one select fetches.
	OptionPageSize int `koanf:"option_page_size"`

	// OptionCacheTTLMS is how long a resolved option set is reused.
	OptionCacheTTLMS int `koanf:"option_cache_ttl_ms"`

	// SearchDebounceMS delays table search requests in the browser.
	SearchDebounceMS int `koanf:"search_debounce_ms"`

	// WorkerCount sets the number of mutation workers for bulk flows.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the mutation queue.
	QueueSize int `koanf:"queue_size"`

	// SubmitGuardSize bounds how many form tokens the submit guard remembers.
	SubmitGuardSize int `koanf:"submit_guard_size"`

	// BulkTimeoutMS bounds how long a bulk save waits for its writes.
	BulkTimeoutMS int `koanf:"bulk_timeout_ms"`

	// CatalogsFile optionally replaces the embedded catalog registry.
	CatalogsFile string `koanf:"catalogs_file"`

	// MetricsEnabled turns request and domain counters on.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels added to every metric. File only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		UpstreamBaseURL:   "http://localhost:8000",
		UpstreamTimeoutMS: 10_000,
		DefaultPageSize:   10,
		OptionPageSize:    100,
		OptionCacheTTLMS:  30_000,
		SearchDebounceMS:  300,
		WorkerCount:       runtime.NumCPU() * 2,
		QueueSize:         1_000,
		SubmitGuardSize:   10_000,
		BulkTimeoutMS:     60_000,
		MetricsEnabled:    true,
		MetricsNamespace:  "hrdesk",
	}
}

// UpstreamTimeout returns UpstreamTimeoutMS as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// BulkTimeout returns BulkTimeoutMS as a duration.
func (c *Config) BulkTimeout() time.Duration {
	return time.Duration(c.BulkTimeoutMS) * time.Millisecond
}

// OptionCacheTTL returns OptionCacheTTLMS as a duration.
func (c *Config) OptionCacheTTL() time.Duration {
	return time.Duration(c.OptionCacheTTLMS) * time.Millisecond
}
