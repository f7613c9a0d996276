package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/arbitrage-scanner/internal/config"
	"github.com/maltedev/arbitrage-scanner/internal/events"
	"github.com/maltedev/arbitrage-scanner/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis", "addr", cfg.Redis.Addr)

	handler := events.LogHandler(log)
	if cfg.Consumer.WebhookURL != "" {
		client := &http.Client{Timeout: cfg.Consumer.Timeout}
		handler = events.WebhookHandler(client, cfg.Consumer.WebhookURL, log)
	}

	consumer := events.NewConsumer(rdb, events.ConsumerOptions{
		Stream: events.DefaultStream,
		Group:  cfg.Consumer.Group,
		Name:   cfg.Consumer.Name,
	}, handler, log)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
