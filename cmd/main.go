package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/hrdesk/internal/adapters/http/api"
	"github.com/okian/hrdesk/internal/adapters/http/site"
	"github.com/okian/hrdesk/internal/adapters/http/swagger"
	"github.com/okian/hrdesk/internal/adapters/repository"
	app "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/config"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 15 * time.Second
	writeTimeout           = 90 * time.Second // bulk saves wait for every reply
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "hrdesk stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and serves HTTP until ctx ends.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go func() { _ = metrics.RunSystemCollector(ctx) }()
	go startServiceMetricsUpdater(ctx, svc)

	handler, err := newRouter(svc, cfg, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr), logger.String("upstream", cfg.UpstreamBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the service over the REST backend.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	store, err := repository.NewRESTStore(cfg.UpstreamBaseURL,
		repository.WithTimeout(cfg.UpstreamTimeout()),
		repository.WithToken(cfg.UpstreamToken),
		repository.WithLogger(log.Named("rest")),
	)
	if err != nil {
		return nil, fmt.Errorf("create rest store: %w", err)
	}
	opts := []app.Option{
		app.WithBackend(store),
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithSubmitGuardSize(cfg.SubmitGuardSize),
		app.WithDefaultPageSize(cfg.DefaultPageSize),
		app.WithOptionPageSize(cfg.OptionPageSize),
		app.WithOptionCacheTTL(cfg.OptionCacheTTL()),
		app.WithBulkTimeout(cfg.BulkTimeout()),
	}
	if cfg.CatalogsFile != "" {
		reg, err := catalog.LoadRegistry(cfg.CatalogsFile)
		if err != nil {
			return nil, fmt.Errorf("load catalogs: %w", err)
		}
		opts = append(opts, app.WithRegistry(reg))
	}
	return app.New(opts...), nil
}

// newRouter mounts the JSON API, the console and the API docs.
func newRouter(svc *app.Service, cfg *config.Config, log logger.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.RequestID)
	r.Use(api.Metrics)

	api.NewServer(svc, log.Named("api")).Register(r)
	swagger.Register(r)

	console, err := site.New(svc,
		site.WithLogger(log.Named("site")),
		site.WithSearchDebounce(time.Duration(cfg.SearchDebounceMS)*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("load console templates: %w", err)
	}
	console.Register(r)
	return r, nil
}

// startServiceMetricsUpdater refreshes service gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
