package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/arbitrage-scanner/internal/api"
	"github.com/maltedev/arbitrage-scanner/internal/app"
	"github.com/maltedev/arbitrage-scanner/internal/config"
	"github.com/maltedev/arbitrage-scanner/internal/events"
	"github.com/maltedev/arbitrage-scanner/internal/jobs"
	"github.com/maltedev/arbitrage-scanner/internal/logger"
	"github.com/maltedev/arbitrage-scanner/internal/queue"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := app.Build(cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("failed to close browser", "error", err)
		}
	}()

	store, publisher, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	taskQueue := queue.NewInMemoryQueue(cfg.Jobs.QueueSize)
	defer taskQueue.Close()

	jobManager := jobs.NewManager(store, taskQueue, stack.Scraper, publisher, log)
	go jobManager.StartWorker(ctx)

	handlers := api.NewHandlers(jobManager, stack.Scraper, stack.Session, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		RequestTimeout: cfg.Server.WriteTimeout,
		Metrics:        promhttp.HandlerFor(stack.Metrics.Registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr, "jobs_store", cfg.Jobs.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// newStore picks the job store. With redis, scan events also go to a
// Redis stream; otherwise they are only logged.
func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (jobs.Store, events.Publisher, func(), error) {
	if cfg.Jobs.Store != "redis" {
		store := jobs.NewMemoryStore(cfg.Jobs.ResultTTL)
		go sweep(ctx, store)
		return store, events.NewLogPublisher(log), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := jobs.NewRedisStore(client, cfg.Redis.Prefix, cfg.Jobs.ResultTTL)
	publisher := events.NewRedisPublisher(client, events.DefaultStream, log)
	return store, publisher, func() { client.Close() }, nil
}

func sweep(ctx context.Context, store *jobs.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Sweep()
		}
	}
}
