package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamClient is the part of *redis.Client a consumer group reader needs.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Handler processes one scan event. A returned error leaves the message
// pending; it is read again on the next backlog pass.
type Handler func(ctx context.Context, event *ScanEvent) error

type ConsumerOptions struct {
	Stream   string
	Group    string
	Name     string
	Block    time.Duration
	Count    int64
	ErrPause time.Duration
	// RetryInterval is how often this consumer re-reads its own pending
	// messages. The first poll always does.
	RetryInterval time.Duration
}

func DefaultConsumerOptions() ConsumerOptions {
	return ConsumerOptions{
		Stream:        DefaultStream,
		Group:         "scan-consumer-group",
		Name:          "consumer-1",
		Block:         5 * time.Second,
		Count:         10,
		ErrPause:      time.Second,
		RetryInterval: time.Minute,
	}
}

// Consumer reads scan events from a Redis stream as a member of a
// consumer group.
type Consumer struct {
	client  StreamClient
	opts    ConsumerOptions
	handler Handler
	logger  *slog.Logger
	now     func() time.Time

	lastBacklog time.Time
}

func NewConsumer(client StreamClient, opts ConsumerOptions, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConsumerOptions()
	if opts.Stream == "" {
		opts.Stream = defaults.Stream
	}
	if opts.Group == "" {
		opts.Group = defaults.Group
	}
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	if opts.Count < 1 {
		opts.Count = defaults.Count
	}
	if opts.Block <= 0 {
		opts.Block = defaults.Block
	}
	if opts.ErrPause <= 0 {
		opts.ErrPause = defaults.ErrPause
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaults.RetryInterval
	}
	return &Consumer{
		client:  client,
		opts:    opts,
		handler: handler,
		logger:  logger.With("component", "event_consumer"),
		now:     time.Now,
	}
}

// Run creates the group if needed and consumes until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer", "stream", c.opts.Stream, "group", c.opts.Group)

	for {
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to read from stream", "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.opts.ErrPause):
			}
		}
	}
}

// Poll reads one batch and handles it. It returns the number of
// acknowledged messages. When a backlog pass is due the batch comes from
// this consumer's pending entries instead of new messages.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	args := &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Name,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    c.opts.Count,
		Block:    c.opts.Block,
	}

	now := c.now()
	backlog := c.lastBacklog.IsZero() || now.Sub(c.lastBacklog) >= c.opts.RetryInterval
	if backlog {
		// Reading from "0" returns pending entries and never blocks.
		args.Streams[1] = "0"
		args.Block = -1
	}

	streams, err := c.client.XReadGroup(ctx, args).Result()
	if backlog && (err == nil || errors.Is(err, redis.Nil)) {
		c.lastBacklog = now
	}
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if !c.handle(ctx, message) {
				continue
			}
			if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, message.ID).Err(); err != nil {
				c.logger.Error("failed to acknowledge message", "id", message.ID, "error", err)
				continue
			}
			acked++
		}
	}
	return acked, nil
}

// handle reports whether the message should be acknowledged. Messages that
// cannot be decoded are acknowledged so they do not block the group.
func (c *Consumer) handle(ctx context.Context, message redis.XMessage) bool {
	event, err := decodeMessage(message)
	if err != nil {
		c.logger.Warn("dropping malformed event", "id", message.ID, "error", err)
		return true
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("failed to process event", "id", message.ID, "job_id", event.JobID, "error", err)
		return false
	}
	return true
}

func decodeMessage(message redis.XMessage) (*ScanEvent, error) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		return nil, errors.New("missing payload in event")
	}

	var event ScanEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	if event.JobID == "" {
		return nil, errors.New("missing job_id in payload")
	}
	return &event, nil
}
