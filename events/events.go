package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	AnalysisRequested      EventType = "analysis.requested"
	WeeklyRefreshRequested EventType = "report.weekly_refresh_requested"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "api", "scheduler", "reconcile"
	Version   string    `json:"version"`
}

func (e BaseEvent) GetType() EventType {
	return e.Type
}

// AnalysisRequestedEvent 는 PROCESSING 상태로 저장된 분석 결과의 실제 처리를 요청한다.
// 본문은 싣지 않는다. 워커가 저장소에서 다시 읽어 복호화한다.
type AnalysisRequestedEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	AnalysisID string `json:"analysis_id"`
	DiaryID    string `json:"diary_id"`
	UserID     string `json:"user_id"`
}

// WeeklyRefreshRequestedEvent 주간 리포트 AI 요약 재계산 요청
type WeeklyRefreshRequestedEvent struct {
	BaseEvent
	TaskID    string `json:"task_id"`
	UserID    string `json:"user_id"`
	WeekStart string `json:"week_start"` // yyyy-MM-dd (월요일)
}

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event any) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case AnalysisRequestedEvent:
		eventType = e.Type
	case WeeklyRefreshRequestedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, eventType, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case AnalysisRequested:
		event = &AnalysisRequestedEvent{}
	case WeeklyRefreshRequested:
		event = &WeeklyRefreshRequestedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
