package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

// RedisClient is the part of *redis.Client the store uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps jobs and results as JSON values with a TTL, so that an
// API restart does not lose track of a running scan's outcome.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) jobKey(id string) string {
	return s.prefix + "job:" + id
}

func (s *RedisStore) resultsKey(id string) string {
	return s.prefix + "results:" + id
}

func (s *RedisStore) SaveJob(ctx context.Context, job *Job) error {
	return s.set(ctx, s.jobKey(job.ID), job)
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) SaveResults(ctx context.Context, id string, rows []models.Opportunity) error {
	return s.set(ctx, s.resultsKey(id), rows)
}

func (s *RedisStore) TakeResults(ctx context.Context, id string) ([]models.Opportunity, error) {
	data, err := s.client.GetDel(ctx, s.resultsKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultsCollected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take results: %w", err)
	}

	var rows []models.Opportunity
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return rows, nil
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
