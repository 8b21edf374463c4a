package models

import "time"

// Diary 는 관계형 DB 에 저장하는 일기 메타데이터이다.
// 본문은 diary_contents 컬렉션(DiaryContent)에 같은 ID 로 저장한다.
type Diary struct {
	ID               string    `gorm:"primaryKey;size:32" json:"id"`
	UserID           string    `gorm:"size:32;index:idx_diary_user_date,priority:1" json:"user_id"`
	Title            string    `gorm:"size:128" json:"title"`
	DiaryDate        time.Time `gorm:"index:idx_diary_user_date,priority:2" json:"diary_date"`
	IsDraft          bool      `json:"is_draft"`
	IsAnalyzed       bool      `json:"is_analyzed"`
	AnalysisID       string    `gorm:"size:32" json:"analysis_id,omitempty"`
	PrimaryEmotion   string    `gorm:"size:16" json:"primary_emotion,omitempty"`
	EmotionIntensity float64   `json:"emotion_intensity"`
	Deleted          bool      `gorm:"index" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DiaryContent 는 암호화된 일기 본문 문서이다.
// Collection: diary_contents
type DiaryContent struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Content   string    `bson:"content" json:"-"`
	Preview   string    `bson:"preview" json:"preview"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
