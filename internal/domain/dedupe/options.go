package dedupe

// Option configures a submit guard.
type Option func(*submitGuard)

// WithMaxSize sets how many tokens are remembered.
// If maxSize > 0: bounded, the oldest token is evicted first.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(g *submitGuard) {
		g.maxSize = maxSize
	}
}
