package dto

import (
	"time"

	"xinji/models"
)

type AnalysisDTO struct {
	ID                   string                       `json:"id"`
	DiaryID              string                       `json:"diary_id"`
	TaskID               string                       `json:"task_id,omitempty"`
	Status               models.AnalysisStatus        `json:"status" example:"PROCESSING"`
	Emotions             map[string]float64           `json:"emotions,omitempty"`
	PrimaryEmotion       string                       `json:"primary_emotion,omitempty"`
	EmotionIntensity     float64                      `json:"emotion_intensity"`
	Keywords             []string                     `json:"keywords,omitempty"`
	CognitiveDistortions []models.CognitiveDistortion `json:"cognitive_distortions,omitempty"`
	Suggestions          []string                     `json:"suggestions,omitempty"`
	RiskLevel            models.RiskLevel             `json:"risk_level,omitempty"`
	AnalyzedAt           *time.Time                   `json:"analyzed_at,omitempty"`
	CreatedAt            time.Time                    `json:"created_at"`
}

func NewAnalysisDTO(a models.AnalysisResult) AnalysisDTO {
	return AnalysisDTO{
		ID:                   a.ID,
		DiaryID:              a.DiaryID,
		TaskID:               a.TaskID,
		Status:               a.Status,
		Emotions:             a.Emotions,
		PrimaryEmotion:       a.PrimaryEmotion,
		EmotionIntensity:     a.EmotionIntensity,
		Keywords:             a.Keywords,
		CognitiveDistortions: a.CognitiveDistortions,
		Suggestions:          a.Suggestions,
		RiskLevel:            a.RiskLevel,
		AnalyzedAt:           a.AnalyzedAt,
		CreatedAt:            a.CreatedAt,
	}
}
