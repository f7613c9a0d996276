package events

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

type MockStreamClient struct {
	mock.Mock
}

func (m *MockStreamClient) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	args := m.Called(ctx, stream, group, start)
	return redis.NewStatusResult("OK", args.Error(0))
}

func (m *MockStreamClient) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	args := m.Called(ctx, a)
	streams, _ := args.Get(0).([]redis.XStream)
	return redis.NewXStreamSliceCmdResult(streams, args.Error(1))
}

func (m *MockStreamClient) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	args := m.Called(ctx, stream, group, ids)
	return redis.NewIntResult(int64(len(ids)), args.Error(0))
}

func message(t *testing.T, id string, event *ScanEvent) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return redis.XMessage{ID: id, Values: map[string]interface{}{
		"event_type": string(event.EventType),
		"payload":    string(data),
	}}
}

func TestConsumer_PollAcknowledgesHandledEvents(t *testing.T) {
	ctx := context.Background()
	client := &MockStreamClient{}

	batch := []redis.XStream{{
		Stream: DefaultStream,
		Messages: []redis.XMessage{
			message(t, "1-0", &ScanEvent{EventType: EventTypeScanCompleted, JobID: "job-1", Opportunities: 4}),
			{ID: "2-0", Values: map[string]interface{}{"event_type": "SCAN_COMPLETED"}},
			message(t, "3-0", &ScanEvent{EventType: EventTypeScanFailed, JobID: "job-2"}),
		},
	}}
	client.On("XReadGroup", ctx, mock.MatchedBy(func(a *redis.XReadGroupArgs) bool {
		return a.Group == "scan-consumer-group" && a.Streams[0] == DefaultStream
	})).Return(batch, nil)
	client.On("XAck", ctx, DefaultStream, "scan-consumer-group", []string{"1-0"}).Return(nil)
	client.On("XAck", ctx, DefaultStream, "scan-consumer-group", []string{"2-0"}).Return(nil)

	var handled []string
	handler := func(_ context.Context, event *ScanEvent) error {
		handled = append(handled, event.JobID)
		if event.JobID == "job-2" {
			return errors.New("webhook down")
		}
		return nil
	}

	c := NewConsumer(client, ConsumerOptions{}, handler, nil)
	acked, err := c.Poll(ctx)
	require.NoError(t, err)

	// The malformed message is dropped, the failed one stays pending.
	assert.Equal(t, 2, acked)
	assert.Equal(t, []string{"job-1", "job-2"}, handled)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "XAck", ctx, DefaultStream, "scan-consumer-group", []string{"3-0"})
}

func TestConsumer_PollNoMessages(t *testing.T) {
	ctx := context.Background()
	client := &MockStreamClient{}
	client.On("XReadGroup", ctx, mock.Anything).Return(nil, redis.Nil)

	c := NewConsumer(client, ConsumerOptions{}, func(context.Context, *ScanEvent) error { return nil }, nil)
	acked, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockStreamClient{}
	client.On("XGroupCreateMkStream", ctx, DefaultStream, "scan-consumer-group", "0").
		Return(errors.New("BUSYGROUP Consumer Group name already exists"))
	client.On("XReadGroup", ctx, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	c := NewConsumer(client, ConsumerOptions{ErrPause: time.Millisecond}, func(context.Context, *ScanEvent) error { return nil }, nil)
	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_RunGroupCreateFailure(t *testing.T) {
	ctx := context.Background()
	client := &MockStreamClient{}
	client.On("XGroupCreateMkStream", ctx, DefaultStream, "scan-consumer-group", "0").
		Return(errors.New("NOAUTH Authentication required"))

	c := NewConsumer(client, ConsumerOptions{}, func(context.Context, *ScanEvent) error { return nil }, nil)
	assert.ErrorContains(t, c.Run(ctx), "NOAUTH")
}

func TestConsumer_BacklogPassRedeliversFailedEvents(t *testing.T) {
	ctx := context.Background()
	client := &MockStreamClient{}

	pending := []redis.XStream{{
		Stream:   DefaultStream,
		Messages: []redis.XMessage{message(t, "5-0", &ScanEvent{EventType: EventTypeScanCompleted, JobID: "job-5"})},
	}}
	backlogRead := mock.MatchedBy(func(a *redis.XReadGroupArgs) bool {
		return a.Streams[1] == "0" && a.Block < 0
	})
	newRead := mock.MatchedBy(func(a *redis.XReadGroupArgs) bool {
		return a.Streams[1] == ">" && a.Block == 5*time.Second
	})
	client.On("XReadGroup", ctx, backlogRead).Return(pending, nil).Twice()
	client.On("XReadGroup", ctx, newRead).Return(nil, redis.Nil).Once()
	client.On("XAck", ctx, DefaultStream, "scan-consumer-group", []string{"5-0"}).Return(nil).Once()

	calls := 0
	handler := func(context.Context, *ScanEvent) error {
		calls++
		if calls == 1 {
			return errors.New("webhook down")
		}
		return nil
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := NewConsumer(client, ConsumerOptions{RetryInterval: time.Minute}, handler, nil)
	c.now = func() time.Time { return now }

	// Startup reads the backlog; the failed delivery stays pending.
	acked, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)

	// Within the interval only new messages are read.
	now = now.Add(30 * time.Second)
	acked, err = c.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)

	// The next backlog pass delivers the event again.
	now = now.Add(30 * time.Second)
	acked, err = c.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	assert.Equal(t, 2, calls)
	client.AssertExpectations(t)
}
