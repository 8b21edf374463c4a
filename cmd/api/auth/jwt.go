package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser = "user"
	RolePro  = "pro"
)

const defaultTTL = 7 * 24 * time.Hour

// JWTManager 는 HS256 단일 시크릿 문자열을 사용해 JWT 를 발급/검증한다.
// 서버에 세션을 두지 않으므로 로그아웃은 클라이언트가 토큰을 버리는 것으로 끝난다.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManagerFromEnv 는 환경변수에서 시크릿/issuer 를 읽어 JWTManager 를 생성한다.
//
// - JWT_SECRET: HS256 서명에 사용할 시크릿 문자열(필수)
// - JWT_ISSUER: iss 클레임 값(선택, 기본값 "xinji")
func NewJWTManagerFromEnv(ttl time.Duration) (*JWTManager, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "xinji"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign 은 토큰과 만료 시각을 돌려준다.
func (m *JWTManager) Sign(sub, role string) (string, time.Time, error) {
	exp := m.now().Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iss":  m.issuer,
		"iat":  m.now().Unix(),
		"exp":  exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(exp.Unix(), 0), nil
}

// Parse 는 서명과 만료를 모두 검증한다.
func (m *JWTManager) Parse(tokenString string) (string, string, error) {
	sub, role, _, err := m.parse(tokenString)
	return sub, role, err
}

// ParseIgnoringExpiry 는 서명만 검증한다. 토큰 갱신 창 판단은 호출자가 만료 시각으로 한다.
func (m *JWTManager) ParseIgnoringExpiry(tokenString string) (string, string, time.Time, error) {
	return m.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (m *JWTManager) parse(tokenString string, opts ...jwt.ParserOption) (string, string, time.Time, error) {
	opts = append(opts, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return "", "", time.Time{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", time.Time{}, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", time.Time{}, fmt.Errorf("token missing sub claim")
	}
	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return sub, role, expiresAt, nil
}
