package dto

import "xinji/models"

// WeeklyReportDTO 통계는 매 요청마다 새로 계산하고 Summary 만 미리 생성된 문서에서 읽는다.
// Summary 가 nil 이면 클라이언트가 refresh 를 호출해야 한다.
type WeeklyReportDTO struct {
	WeekStart           string                     `json:"week_start" example:"2025-01-06"`
	WeekEnd             string                     `json:"week_end" example:"2025-01-12"`
	DiaryCount          int                        `json:"diary_count"`
	AnalyzedCount       int                        `json:"analyzed_count"`
	EmotionTrend        []models.EmotionTrendPoint `json:"emotion_trend"`
	EmotionDistribution map[string]int             `json:"emotion_distribution"`
	AverageIntensity    *float64                   `json:"average_intensity"`
	MostFrequentEmotion string                     `json:"most_frequent_emotion,omitempty"`
	Keywords            []string                   `json:"keywords"`
	Summary             *models.WeeklySummary      `json:"summary"`
}

type InsightDTO struct {
	Type       string  `json:"type" example:"EMOTION_PATTERN"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence" example:"0.85"`
}

type EmotionForecastDTO struct {
	NextWeekRisk models.RiskLevel `json:"next_week_risk" example:"LOW"`
	Triggers     []string         `json:"triggers"`
}

type MindfulnessDTO struct {
	Title    string `json:"title"`
	Duration string `json:"duration"`
	URL      string `json:"url"`
}

type InsightsReportDTO struct {
	TimeRange              string             `json:"time_range" example:"month"`
	StartDate              string             `json:"start_date"`
	EndDate                string             `json:"end_date"`
	Insights               []InsightDTO       `json:"insights"`
	GrowthPlan             []string           `json:"growth_plan"`
	EmotionForecast        EmotionForecastDTO `json:"emotion_forecast"`
	MindfulnessSuggestions []MindfulnessDTO   `json:"mindfulness_suggestions"`
}

// RefreshDTO 는 debounce 로 무시되면 Accepted=false, TaskID 는 비어 있다.
type RefreshDTO struct {
	WeekStart string `json:"week_start"`
	Accepted  bool   `json:"accepted"`
	TaskID    string `json:"task_id,omitempty"`
}
