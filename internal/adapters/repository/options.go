package repository

import (
	"net/http"
	"time"

	"github.com/okian/hrdesk/pkg/logger"
)

// Option applies a configuration option to the RESTStore.
type Option func(*RESTStore)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *RESTStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds every backend request.
func WithTimeout(d time.Duration) Option {
	return func(s *RESTStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *RESTStore) {
		s.token = token
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *RESTStore) {
		if l != nil {
			s.log = l
		}
	}
}
