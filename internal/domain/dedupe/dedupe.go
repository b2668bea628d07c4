// Package dedupe guards form submissions so one rendered form is written at
// most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Guard tracks form tokens of submits that are in flight or succeeded.
type Guard interface {
	// Acquire claims token for a submit. It returns false when the token is
	// already claimed. An empty token is never tracked and always allowed.
	Acquire(ctx context.Context, token string) bool

	// Release frees a token whose submit failed so the corrected form can
	// be sent again.
	Release(ctx context.Context, token string)

	Size() int64
}

// NewToken returns a fresh form token.
func NewToken() string {
	return uuid.NewString()
}

// submitGuard keeps claimed tokens newest-first. In bounded mode the oldest
// token is evicted when the guard is full.
type submitGuard struct {
	mu      sync.Mutex
	claimed map[string]*list.Element
	order   *list.List
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewSubmitGuard creates an in-memory guard.
func NewSubmitGuard(opts ...Option) Guard {
	g := &submitGuard{
		maxSize: 10_000,
		claimed: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *submitGuard) Acquire(_ context.Context, token string) bool {
	if token == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.claimed[token]; ok {
		return false
	}
	if g.maxSize > 0 && g.order.Len() >= g.maxSize {
		oldest := g.order.Back()
		g.order.Remove(oldest)
		delete(g.claimed, oldest.Value.(string))
		g.size.Add(-1)
	}
	g.claimed[token] = g.order.PushFront(token)
	g.size.Add(1)
	return true
}

func (g *submitGuard) Release(_ context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.claimed[token]; ok {
		g.order.Remove(el)
		delete(g.claimed, token)
		g.size.Add(-1)
	}
}

func (g *submitGuard) Size() int64 {
	return g.size.Load()
}
