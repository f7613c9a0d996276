package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventTypeScanCompleted EventType = "SCAN_COMPLETED"
	EventTypeScanFailed    EventType = "SCAN_FAILED"
)

const DefaultStream = "stream:arbitrage_scans"

// ScanEvent announces the end of a scan job.
type ScanEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	JobID         string    `json:"job_id"`
	Categories    int       `json:"categories"`
	Opportunities int       `json:"opportunities"`
	Error         string    `json:"error,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event *ScanEvent) error
}

// RedisClient is the part of *redis.Client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewRedisPublisher(client RedisClient, stream string, logger *slog.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: 1000,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *ScanEvent) error {
	stamp(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id":   event.EventID,
			"event_type": string(event.EventType),
			"job_id":     event.JobID,
			"payload":    string(data),
		},
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", event.EventType,
		"event_id", event.EventID,
		"job_id", event.JobID,
		"stream_id", id,
	)
	return nil
}

// LogPublisher only logs events. It is used when no Redis is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "event_publisher")}
}

func (p *LogPublisher) Publish(_ context.Context, event *ScanEvent) error {
	stamp(event)
	p.logger.Info("scan event",
		"type", event.EventType,
		"event_id", event.EventID,
		"job_id", event.JobID,
		"opportunities", event.Opportunities,
	)
	return nil
}

func stamp(event *ScanEvent) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}
