package models

import "time"

type MemberStatus string

const (
	MemberFree MemberStatus = "FREE"
	MemberPro  MemberStatus = "PRO"
)

// User 는 관계형 DB 의 users 테이블이다.
// 전화번호는 AES 암호문과 조회용 SHA-256 해시로만 저장한다.
type User struct {
	ID             string       `gorm:"primaryKey;size:32" json:"id"`
	PhoneHash      string       `gorm:"size:64;uniqueIndex" json:"-"`
	PhoneEncrypted string       `gorm:"size:255" json:"-"`
	Nickname       string       `gorm:"size:64" json:"nickname"`
	Avatar         string       `gorm:"size:512" json:"avatar"`
	MemberStatus   MemberStatus `gorm:"size:16;index" json:"member_status"`
	MemberExpireAt *time.Time   `json:"member_expire_at,omitempty"`
	LastLoginAt    *time.Time   `json:"last_login_at,omitempty"`
	Deleted        bool         `gorm:"index" json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsPro 는 만료 시각까지 고려한 Pro 여부이다.
func (u *User) IsPro(now time.Time) bool {
	if u == nil || u.MemberStatus != MemberPro {
		return false
	}
	return u.MemberExpireAt == nil || u.MemberExpireAt.After(now)
}
