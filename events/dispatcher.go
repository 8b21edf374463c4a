package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xinji/config"
	"xinji/eventbus"
)

const eventVersion = "1.0"

// Dispatcher 는 비동기 작업을 큐에 넣는다. 반환하는 task id 는 로그 추적용이며 취소 API 는 없다.
type Dispatcher struct {
	bus    eventbus.EventBus
	topics eventbus.Topics
	source string
	now    func() time.Time
}

func NewDispatcher(bus eventbus.EventBus, topics eventbus.Topics, source string) *Dispatcher {
	return &Dispatcher{bus: bus, topics: topics, source: source, now: time.Now}
}

func (d *Dispatcher) base(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: d.now(),
		Source:    d.source,
		Version:   eventVersion,
	}
}

// DispatchAnalysis 는 분석 작업을 발행한다. 분석은 재시도하지 않으므로 MaxRetry 를 1 로 둔다.
// 핸들러가 오류를 돌려주지 않으므로 실제로는 재시도 토픽을 타지 않는다.
func (d *Dispatcher) DispatchAnalysis(ctx context.Context, analysisID, diaryID, userID string) (string, error) {
	taskID := uuid.NewString()
	e := AnalysisRequestedEvent{
		BaseEvent:  d.base(AnalysisRequested),
		TaskID:     taskID,
		AnalysisID: analysisID,
		DiaryID:    diaryID,
		UserID:     userID,
	}
	if err := d.publish(ctx, d.topics.Analysis, taskID, e, 1); err != nil {
		return "", err
	}
	config.InfoWithFields("analysis task dispatched", config.Fields{"task_id": taskID, "analysis_id": analysisID, "diary_id": diaryID})
	return taskID, nil
}

// DispatchWeeklyRefresh 주간 리포트 요약 재계산 작업 발행
func (d *Dispatcher) DispatchWeeklyRefresh(ctx context.Context, userID, weekStart string) (string, error) {
	taskID := uuid.NewString()
	e := WeeklyRefreshRequestedEvent{
		BaseEvent: d.base(WeeklyRefreshRequested),
		TaskID:    taskID,
		UserID:    userID,
		WeekStart: weekStart,
	}
	if err := d.publish(ctx, d.topics.Report, taskID, e, 2); err != nil {
		return "", err
	}
	config.InfoWithFields("weekly refresh task dispatched", config.Fields{"task_id": taskID, "user_id": userID, "week_start": weekStart})
	return taskID, nil
}

func (d *Dispatcher) publish(ctx context.Context, topic eventbus.Topic, taskID string, payload any, maxRetry int) error {
	evt, err := eventbus.NewJSONEvent(taskID, payload, maxRetry)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	if err := d.bus.Publish(ctx, topic.Base(), evt); err != nil {
		return fmt.Errorf("publish %s: %w", topic.Base(), err)
	}
	return nil
}
