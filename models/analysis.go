package models

import "time"

type AnalysisStatus string

const (
	AnalysisProcessing AnalysisStatus = "PROCESSING"
	AnalysisCompleted  AnalysisStatus = "COMPLETED"
	AnalysisFailed     AnalysisStatus = "FAILED"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

const DistortionNone = "NONE"

type CognitiveDistortion struct {
	Type        string `bson:"type" json:"type"`
	Description string `bson:"description" json:"description"`
}

// AnalysisResult 는 일기 한 편에 대한 AI 분석 결과이다.
// 재분석은 새 문서를 만들고 Diary.AnalysisID 포인터만 바꾼다. 이전 문서는 지우지 않는다.
// Collection: analysis_results
type AnalysisResult struct {
	ID                   string                `bson:"_id" json:"id"`
	DiaryID              string                `bson:"diary_id" json:"diary_id"`
	UserID               string                `bson:"user_id" json:"user_id"`
	TaskID               string                `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Status               AnalysisStatus        `bson:"status" json:"status"`
	Emotions             map[string]float64    `bson:"emotions,omitempty" json:"emotions,omitempty"`
	PrimaryEmotion       string                `bson:"primary_emotion,omitempty" json:"primary_emotion,omitempty"`
	EmotionIntensity     float64               `bson:"emotion_intensity" json:"emotion_intensity"`
	Keywords             []string              `bson:"keywords,omitempty" json:"keywords,omitempty"`
	CognitiveDistortions []CognitiveDistortion `bson:"cognitive_distortions,omitempty" json:"cognitive_distortions,omitempty"`
	Suggestions          []string              `bson:"suggestions,omitempty" json:"suggestions,omitempty"`
	RiskLevel            RiskLevel             `bson:"risk_level,omitempty" json:"risk_level,omitempty"`
	ErrorMessage         string                `bson:"error_message,omitempty" json:"-"`
	AnalyzedAt           *time.Time            `bson:"analyzed_at,omitempty" json:"analyzed_at,omitempty"`
	CreatedAt            time.Time             `bson:"created_at" json:"created_at"`
}
