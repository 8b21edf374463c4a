package dto

import "time"

type QuotaDTO struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type ProfileDTO struct {
	ID             string     `json:"id"`
	Phone          string     `json:"phone" example:"138****8000"`
	Nickname       string     `json:"nickname"`
	Avatar         string     `json:"avatar"`
	MemberStatus   string     `json:"member_status" example:"FREE"`
	MemberExpireAt *time.Time `json:"member_expire_at,omitempty"`
	DiaryCount     int64      `json:"diary_count"`
	AIQuota        QuotaDTO   `json:"ai_quota"`
	CreatedAt      time.Time  `json:"created_at"`
}

type TokenDTO struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LoginDTO struct {
	TokenDTO
	IsNewUser bool       `json:"is_new_user"`
	User      ProfileDTO `json:"user"`
}
