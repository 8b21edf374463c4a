package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/eventbus"
)

type recordingBus struct {
	mu        sync.Mutex
	published map[string][]eventbus.Event
	err       error
}

func (b *recordingBus) Publish(ctx context.Context, topic string, event eventbus.Event) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string][]eventbus.Event{}
	}
	b.published[topic] = append(b.published[topic], event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, groupID string, topic eventbus.Topic, handler eventbus.EventHandler) error {
	return nil
}

func (b *recordingBus) StartRetryReinjector(ctx context.Context, groupID string, topic eventbus.Topic) error {
	return nil
}

func (b *recordingBus) Close() {}

func testTopics() eventbus.Topics {
	return eventbus.Topics{Analysis: eventbus.NewTopic("a"), Report: eventbus.NewTopic("r")}
}

func TestDispatcher_DispatchAnalysis(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(bus, testTopics(), "api")
	d.now = func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC) }

	taskID, err := d.DispatchAnalysis(context.Background(), "an1", "d1", "u1")
	require.NoError(t, err)
	require.Len(t, bus.published["a"], 1)

	evt := bus.published["a"][0]
	assert.Equal(t, taskID, evt.ID)

	got, err := eventbus.DecodeJSON[AnalysisRequestedEvent](evt)
	require.NoError(t, err)
	assert.Equal(t, AnalysisRequested, got.Type)
	assert.Equal(t, taskID, got.TaskID)
	assert.Equal(t, "an1", got.AnalysisID)
	assert.Equal(t, "api", got.Source)
}

func TestDispatcher_PublishError(t *testing.T) {
	bus := &recordingBus{err: eventbus.ErrQueueFull}
	d := NewDispatcher(bus, testTopics(), "api")

	_, err := d.DispatchWeeklyRefresh(context.Background(), "u1", "2025-01-06")
	assert.ErrorIs(t, err, eventbus.ErrQueueFull)
}

func TestRouter_Dispatch(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(bus, testTopics(), "scheduler")
	_, err := d.DispatchWeeklyRefresh(context.Background(), "u1", "2025-01-06")
	require.NoError(t, err)

	var got WeeklyRefreshRequestedEvent
	r := NewRouter()
	Handle(r, WeeklyRefreshRequested, func(ctx context.Context, e WeeklyRefreshRequestedEvent) error {
		got = e
		return errors.New("retry me")
	})

	err = r.Dispatch(context.Background(), bus.published["r"][0])
	assert.EqualError(t, err, "retry me")
	assert.Equal(t, "2025-01-06", got.WeekStart)

	// 등록되지 않은 타입과 type 없는 payload 는 조용히 넘어간다.
	assert.NoError(t, r.Dispatch(context.Background(), eventbus.Event{Payload: []byte(`{"type":"other"}`)}))
	assert.NoError(t, r.Dispatch(context.Background(), eventbus.Event{Payload: []byte(`{}`)}))
}

func TestSerializeRoundTrip(t *testing.T) {
	e := AnalysisRequestedEvent{BaseEvent: BaseEvent{Type: AnalysisRequested}, AnalysisID: "x"}
	data, typ, err := SerializeEvent(e)
	require.NoError(t, err)
	assert.Equal(t, AnalysisRequested, typ)

	v, err := DeserializeEvent(typ, data)
	require.NoError(t, err)
	assert.Equal(t, "x", v.(*AnalysisRequestedEvent).AnalysisID)

	_, _, err = SerializeEvent(struct{}{})
	assert.Error(t, err)
}
