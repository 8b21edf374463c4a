package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/config"
)

func TestTopicNames(t *testing.T) {
	topic := NewTopic("xinji.analysis.tasks")

	assert.Equal(t, "xinji.analysis.tasks", topic.Base())
	assert.Equal(t, "xinji.analysis.tasks.dlq", topic.DLQ())
	retries := topic.GetRetryTopics()
	require.Len(t, retries, len(RetryDelays))
	assert.Equal(t, "xinji.analysis.tasks.retry.1", retries[0])

	name, err := topic.GetRetryTopic(2)
	require.NoError(t, err)
	assert.Equal(t, "xinji.analysis.tasks.retry.2", name)

	_, err = topic.GetRetryTopic(len(RetryDelays) + 1)
	assert.ErrorIs(t, err, ErrMaxRetryExceeded)
}

func TestParseRetryDelayFromTopicName(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  time.Duration
		ok    bool
	}{
		{"first", "xinji.report.tasks.retry.1", 10 * time.Second, true},
		{"last", "xinji.report.tasks.retry.5", 10 * time.Minute, true},
		{"out of range", "xinji.report.tasks.retry.6", 0, false},
		{"not a number", "xinji.report.tasks.retry.1m0s", 0, false},
		{"base topic", "xinji.report.tasks", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryDelayFromTopicName(tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	// GetRetryTopics 가 만든 이름은 항상 파싱된다.
	for i, name := range NewTopic("x").GetRetryTopics() {
		d, ok := ParseRetryDelayFromTopicName(name)
		require.True(t, ok)
		assert.Equal(t, RetryDelays[i], d)
	}
}

func TestNextHop(t *testing.T) {
	topic := NewTopic("t")
	cause := errors.New("boom")

	target, evt, dead := nextHop(topic, Event{ID: "a", Retry: 0, MaxRetry: 2}, cause)
	assert.False(t, dead)
	assert.Equal(t, "t.retry.1", target)
	assert.Equal(t, 1, evt.Retry)
	assert.Equal(t, "boom", evt.LastError)

	target, _, dead = nextHop(topic, Event{ID: "a", Retry: 2, MaxRetry: 2}, cause)
	assert.True(t, dead)
	assert.Equal(t, "t.dlq", target)
}

type samplePayload struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func TestJSONEventHelpers(t *testing.T) {
	evt, err := NewJSONEvent("", samplePayload{Type: "analysis.requested", UserID: "u1"}, 99)
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, len(RetryDelays), evt.MaxRetry)

	typ, err := PeekType(evt)
	require.NoError(t, err)
	assert.Equal(t, "analysis.requested", typ)

	decoded, err := DecodeJSON[samplePayload](evt)
	require.NoError(t, err)
	assert.Equal(t, "u1", decoded.UserID)

	_, err = PeekType(Event{Payload: []byte(`{"user_id":"u1"}`)})
	assert.Error(t, err)
}

func newTestBus(workers, size int) *MemoryEventBus {
	bus := NewMemoryEventBus(config.EventBusConfig{Workers: workers, QueueSize: size})
	bus.delays = []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}
	return bus
}

func TestMemoryEventBus_DeliversEvents(t *testing.T) {
	bus := newTestBus(2, 8)
	defer bus.Close()
	topic := NewTopic("mem.deliver")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	go bus.Subscribe(ctx, "g", topic, func(ctx context.Context, evt Event) error {
		handled.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		evt, err := NewJSONEvent("", samplePayload{Type: "x"}, 0)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, topic.Base(), evt))
	}

	assert.Eventually(t, func() bool { return handled.Load() == 5 }, time.Second, 5*time.Millisecond)
}

func TestMemoryEventBus_RetriesThenDrops(t *testing.T) {
	bus := newTestBus(1, 8)
	defer bus.Close()
	topic := NewTopic("mem.retry")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go bus.Subscribe(ctx, "g", topic, func(ctx context.Context, evt Event) error {
		calls.Add(1)
		return errors.New("always fails")
	})

	evt, err := NewJSONEvent("task-1", samplePayload{Type: "x"}, 2)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, topic.Base(), evt))

	// 최초 1회 + 재시도 2회
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := newTestBus(1, 8)
	defer bus.Close()
	topic := NewTopic("mem.panic")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go bus.Subscribe(ctx, "g", topic, func(ctx context.Context, evt Event) error {
		if calls.Add(1) == 1 {
			panic("first call explodes")
		}
		return nil
	})

	require.NoError(t, bus.Publish(ctx, topic.Base(), Event{ID: "p", MaxRetry: 1}))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestMemoryEventBus_QueueFullAndClosed(t *testing.T) {
	bus := newTestBus(1, 1)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "full", Event{ID: "1"}))
	assert.ErrorIs(t, bus.Publish(ctx, "full", Event{ID: "2"}), ErrQueueFull)

	bus.Close()
	assert.ErrorIs(t, bus.Publish(ctx, "other", Event{ID: "3"}), ErrBusClosed)
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics(config.EventBusConfig{AnalysisTopic: "a", ReportTopic: "r"})
	assert.Equal(t, "a", topics.Analysis.Base())
	assert.Equal(t, "r", topics.Report.Base())
	assert.Len(t, topics.All(), 2)
}
