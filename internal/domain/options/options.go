package options

import (
	"time"

	"github.com/okian/hrdesk/pkg/logger"
)

const (
	defaultPageSize    = 100
	defaultTTL         = 30 * time.Second
	defaultConcurrency = 8
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithPageSize caps how many options one request returns.
func WithPageSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithTTL sets how long a fetched set is reused. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl >= 0 {
			r.ttl = ttl
		}
	}
}

// WithConcurrency bounds parallel fetches in ResolveAll.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}
