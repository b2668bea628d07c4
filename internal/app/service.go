// Package service wires the catalog tables, option resolver, submit guard
// and write workers behind the operations the HTTP adapters and the CLI
// call.
package service

import (
	"context"
	"net/url"
	"runtime"
	"sync"
	"time"

	mutationqueue "github.com/okian/hrdesk/internal/adapters/mq/queue"
	workerpool "github.com/okian/hrdesk/internal/adapters/mq/worker"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/dedupe"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/options"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// Backend is the REST client the service drives.
type Backend interface {
	catalog.Store
	Post(ctx context.Context, path string, payload map[string]any) (model.Item, error)
	Execute(ctx context.Context, m model.Mutation) model.MutationResult
}

// Service implements the console operations.
type Service struct {
	mu sync.RWMutex

	backend  Backend
	registry *catalog.Registry
	table    *catalog.Table
	resolver *options.Resolver
	guard    dedupe.Guard
	queue    mutationqueue.Queue
	pool     *workerpool.Pool
	bulk     *Dispatcher

	workerCount     int
	queueSize       int
	guardSize       int
	defaultPageSize int
	optionPageSize  int
	optionTTL       time.Duration
	bulkTimeout     time.Duration

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend sets the REST client.
func WithBackend(b Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithRegistry sets the catalog registry. The embedded one is used otherwise.
func WithRegistry(r *catalog.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithWorkerCount sets the number of write workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many writes may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSubmitGuardSize sets how many form tokens are remembered.
func WithSubmitGuardSize(size int) Option {
	return func(s *Service) {
		s.guardSize = size
	}
}

// WithDefaultPageSize sets the catalog page size used when none is asked for.
func WithDefaultPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.defaultPageSize = size
		}
	}
}

// WithOptionPageSize sets the page_size of option lookups.
func WithOptionPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.optionPageSize = size
		}
	}
}

// WithOptionCacheTTL sets how long option sets are reused. Zero disables
// caching.
func WithOptionCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.optionTTL = ttl
		}
	}
}

// WithBulkTimeout bounds how long a bulk save waits for its writes.
func WithBulkTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.bulkTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       1000,
		guardSize:       10_000,
		defaultPageSize: 10,
		optionPageSize:  100,
		optionTTL:       30 * time.Second,
		bulkTimeout:     time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the write workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.backend == nil {
		return ErrNoBackend
	}
	if s.registry == nil {
		reg, err := catalog.LoadRegistry("")
		if err != nil {
			return err
		}
		s.registry = reg
	}

	s.logger.Info(ctx, "starting console service...")

	s.table = catalog.NewTable(s.backend, s.logger.Named("catalog"))
	s.resolver = options.NewResolver(s.backend,
		options.WithPageSize(s.optionPageSize),
		options.WithTTL(s.optionTTL),
		options.WithLogger(s.logger.Named("options")),
	)
	s.guard = dedupe.NewSubmitGuard(dedupe.WithMaxSize(s.guardSize))
	s.queue = mutationqueue.NewInMemoryQueue(mutationqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.backend)
	s.bulk = NewDispatcher(s.queue, s.logger.Named("bulk"))

	// Workers outlive request contexts; Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "console service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("catalogs", len(s.registry.List())),
	)
	return nil
}

// Stop drains queued writes and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping console service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "console service stopped")
}

// Ready reports whether the service accepts requests.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Registry returns the catalog registry.
func (s *Service) Registry() *catalog.Registry {
	return s.registry
}

// Lookup fetches one page of any backend collection.
func (s *Service) Lookup(ctx context.Context, endpoint string, query url.Values) (model.Page, error) {
	return s.backend.List(ctx, endpoint, query)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()
		stats["pendingTokens"] = s.guard.Size()
		stats["catalogs"] = len(s.registry.List())
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
