package secure

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidPhone 은 중국 본토 휴대폰 번호 형식인지 확인한다.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// MaskPhone 은 13800138000 을 138****8000 으로 바꾼다. 11자리가 아니면 그대로 둔다.
func MaskPhone(phone string) string {
	if len(phone) != 11 {
		return phone
	}
	return phone[:3] + "****" + phone[7:]
}

// HashPhone 은 조회용 SHA-256 hex 해시이다.
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(sum[:])
}
