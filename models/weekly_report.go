package models

import "time"

type EmotionTrendPoint struct {
	Date      string  `bson:"date" json:"date"`
	Emotion   string  `bson:"emotion" json:"emotion"`
	Intensity float64 `bson:"intensity" json:"intensity"`
}

// WeeklySummary 는 AI(또는 로컬 템플릿)가 만든 주간 요약이다.
// WeeklyReport.AISummary 에는 이 구조체를 JSON 직렬화한 문자열을 저장한다.
type WeeklySummary struct {
	Summary      string   `json:"summary"`
	Suggestions  []string `json:"suggestions"`
	ActionPoints []string `json:"actionPoints"`
}

// WeeklyReport 는 (user_id, week_start) 당 하나만 존재한다. 업서트로 유지한다.
// Collection: weekly_reports
type WeeklyReport struct {
	ID                  string              `bson:"_id" json:"id"`
	UserID              string              `bson:"user_id" json:"user_id"`
	WeekStart           string              `bson:"week_start" json:"week_start"`
	WeekEnd             string              `bson:"week_end" json:"week_end"`
	DiaryCount          int                 `bson:"diary_count" json:"diary_count"`
	AnalyzedCount       int                 `bson:"analyzed_count" json:"analyzed_count"`
	EmotionTrend        []EmotionTrendPoint `bson:"emotion_trend" json:"emotion_trend"`
	EmotionDistribution map[string]int      `bson:"emotion_distribution" json:"emotion_distribution"`
	AverageIntensity    float64             `bson:"average_intensity" json:"average_intensity"`
	MostFrequentEmotion string              `bson:"most_frequent_emotion" json:"most_frequent_emotion"`
	Keywords            []string            `bson:"keywords" json:"keywords"`
	AISummary           string              `bson:"ai_summary" json:"ai_summary"`
	CreatedAt           time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `bson:"updated_at" json:"updated_at"`
}
