package dto

import (
	"time"

	"xinji/models"
)

const DateLayout = "2006-01-02"

// DiaryDTO 목록에서는 Content 를 비우고 Preview 만 내려준다.
type DiaryDTO struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Preview          string    `json:"preview"`
	Content          string    `json:"content,omitempty"`
	DiaryDate        string    `json:"diary_date" example:"2025-01-06"`
	IsDraft          bool      `json:"is_draft"`
	IsAnalyzed       bool      `json:"is_analyzed"`
	AnalysisID       string    `json:"analysis_id,omitempty"`
	PrimaryEmotion   string    `json:"primary_emotion,omitempty" example:"HAPPY"`
	EmotionIntensity float64   `json:"emotion_intensity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewDiaryDTO(d models.Diary, preview, content string) DiaryDTO {
	return DiaryDTO{
		ID:               d.ID,
		Title:            d.Title,
		Preview:          preview,
		Content:          content,
		DiaryDate:        d.DiaryDate.Format(DateLayout),
		IsDraft:          d.IsDraft,
		IsAnalyzed:       d.IsAnalyzed,
		AnalysisID:       d.AnalysisID,
		PrimaryEmotion:   d.PrimaryEmotion,
		EmotionIntensity: d.EmotionIntensity,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
