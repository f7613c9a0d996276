package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *MockRedisClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func TestRedisStore_SaveJob(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	s := NewRedisStore(client, "arbitrage:", time.Hour)

	client.On("Set", ctx, "arbitrage:job:abc", mock.MatchedBy(func(v interface{}) bool {
		var job Job
		data, ok := v.([]byte)
		return ok && json.Unmarshal(data, &job) == nil && job.Status == StatusRunning
	}), time.Hour).Return(redis.NewStatusResult("OK", nil))

	require.NoError(t, s.SaveJob(ctx, &Job{ID: "abc", Status: StatusRunning}))
	client.AssertExpectations(t)
}

func TestRedisStore_SaveJobError(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	s := NewRedisStore(client, "p:", time.Hour)

	client.On("Set", ctx, "p:job:abc", mock.Anything, time.Hour).
		Return(redis.NewStatusResult("", errors.New("connection refused")))

	err := s.SaveJob(ctx, &Job{ID: "abc"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisStore_GetJob(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	s := NewRedisStore(client, "p:", time.Hour)

	data, err := json.Marshal(&Job{ID: "abc", Status: StatusCompleted, Opportunities: 2})
	require.NoError(t, err)
	client.On("Get", ctx, "p:job:abc").Return(redis.NewStringResult(string(data), nil))
	client.On("Get", ctx, "p:job:gone").Return(redis.NewStringResult("", redis.Nil))

	job, err := s.GetJob(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 2, job.Opportunities)

	_, err = s.GetJob(ctx, "gone")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRedisStore_TakeResults(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	s := NewRedisStore(client, "p:", time.Hour)

	data, err := json.Marshal(sampleRows())
	require.NoError(t, err)
	client.On("GetDel", ctx, "p:results:abc").Return(redis.NewStringResult(string(data), nil)).Once()
	client.On("GetDel", ctx, "p:results:abc").Return(redis.NewStringResult("", redis.Nil)).Once()

	rows, err := s.TakeResults(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kettle", rows[0].Title)
	assert.Equal(t, "8.84", rows[0].Profit.String())

	_, err = s.TakeResults(ctx, "abc")
	assert.ErrorIs(t, err, ErrResultsCollected)
	client.AssertExpectations(t)
}
