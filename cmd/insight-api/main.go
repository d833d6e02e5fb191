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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/insight-engine/internal/api"
	"github.com/Sternrassler/insight-engine/internal/config"
	"github.com/Sternrassler/insight-engine/internal/sweep"
	"github.com/Sternrassler/insight-engine/pkg/cache"
	"github.com/Sternrassler/insight-engine/pkg/dispatch"
	"github.com/Sternrassler/insight-engine/pkg/logging"
	"github.com/Sternrassler/insight-engine/pkg/provider"
	"github.com/Sternrassler/insight-engine/pkg/provider/aws"
	"github.com/Sternrassler/insight-engine/pkg/provider/azure"
	"github.com/Sternrassler/insight-engine/pkg/provider/google"
	"github.com/Sternrassler/insight-engine/pkg/ratelimit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// run wires every component and serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger("server")

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := app.janitor.Start(sweepCtx)
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	srv := newServer(cfg, app.handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("cache_backend", cfg.CacheBackend).
			Msg("Starting insight API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newServer builds the HTTP server. Request contexts are not tied to the
// signal context, so Shutdown drains in-flight requests instead of
// canceling them.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Room for the slowest provider call plus cache and encoding.
		WriteTimeout: cfg.ProviderTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// app is the wired server without its listener.
type app struct {
	handler http.Handler
	janitor *sweep.Janitor
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	store, tasks, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit, logging.NewLogger("ratelimit"))
	tasks = append(tasks, sweep.Task{Name: "ratelimit", Sweeper: limiter})

	analyzers, closers := buildAnalyzers(ctx, cfg)
	a.closers = append(a.closers, closers...)

	dispatcher := dispatch.New(analyzers, dispatch.Config{Timeout: cfg.ProviderTimeout}, logging.NewLogger("dispatch"))

	h, err := api.NewHandler(api.Config{
		Dispatcher: dispatcher,
		Limiter:    limiter,
		Cache:      store,
		CacheTTL:   cfg.CacheTTL,
		Text:       api.TextLimits{MinLength: cfg.Text.Min, MaxLength: cfg.Text.Max},
		Logger:     logging.NewLogger("api"),
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create handler: %w", err)
	}

	a.handler = api.NewRouter(h, logging.NewLogger("http"))
	a.janitor = sweep.New(cfg.SweepInterval, logging.NewLogger("sweep"), tasks...)
	return a, nil
}

// buildStore returns the configured result store and the sweep tasks it needs.
func buildStore(ctx context.Context, cfg *config.Config) (cache.Store, []sweep.Task, func() error, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		store := cache.NewRedisStore(redisClient)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			redisClient.Close()
			return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
		}

		log.Info().Str("addr", cfg.RedisURL).Msg("Connected to Redis")
		// Redis expires entries itself.
		return store, nil, redisClient.Close, nil

	default:
		store := cache.NewMemoryStore()
		return store, []sweep.Task{{Name: "cache", Sweeper: store}}, nil, nil
	}
}

// buildAnalyzers constructs every vendor adapter. An adapter that cannot be
// configured is replaced by one that reports an error marker for each call.
func buildAnalyzers(ctx context.Context, cfg *config.Config) ([]provider.Analyzer, []func() error) {
	logger := logging.NewLogger("provider")
	var (
		analyzers []provider.Analyzer
		closers   []func() error
	)

	unavailable := func(name provider.Name, err error) {
		logger.Warn().Err(err).Str("provider", string(name)).Msg("Provider unavailable")
		analyzers = append(analyzers, provider.Unavailable(name))
	}

	if a, err := aws.New(ctx, cfg.AWS, logger); err != nil {
		unavailable(provider.AWS, err)
	} else {
		analyzers = append(analyzers, a)
	}

	if a, err := azure.New(cfg.Azure, logger); err != nil {
		unavailable(provider.Azure, err)
	} else {
		analyzers = append(analyzers, a)
	}

	if a, err := google.New(ctx, cfg.Google, logger); err != nil {
		unavailable(provider.Google, err)
	} else {
		analyzers = append(analyzers, a)
		closers = append(closers, a.Close)
	}

	return analyzers, closers
}
