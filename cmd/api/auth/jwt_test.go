package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager(now time.Time) *JWTManager {
	return &JWTManager{
		secret: []byte("service-secret"),
		issuer: "issuer",
		ttl:    time.Hour,
		now:    func() time.Time { return now },
	}
}

func TestNewJWTManagerFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_ISSUER", "issuer-for-test")

	manager, err := NewJWTManagerFromEnv(time.Hour)
	if err == nil {
		t.Fatalf("expected error when JWT_SECRET is empty")
	}
	if manager != nil {
		t.Fatalf("expected nil manager when env is invalid")
	}
}

func TestNewJWTManagerFromEnvUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_ISSUER", "")

	manager, err := NewJWTManagerFromEnv(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manager.issuer != "xinji" {
		t.Fatalf("expected default issuer xinji, got %q", manager.issuer)
	}
	if manager.ttl != defaultTTL {
		t.Fatalf("expected default ttl %s, got %s", defaultTTL, manager.ttl)
	}
}

func TestJWTManagerSignAndParseRoundTrip(t *testing.T) {
	now := time.Now()
	manager := newTestManager(now)

	token, exp, err := manager.Sign("user-001", RolePro)
	if err != nil {
		t.Fatalf("unexpected sign error: %v", err)
	}
	if want := now.Add(time.Hour).Unix(); exp.Unix() != want {
		t.Fatalf("expected expiry %d, got %d", want, exp.Unix())
	}

	sub, role, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if sub != "user-001" {
		t.Fatalf("expected sub user-001, got %q", sub)
	}
	if role != RolePro {
		t.Fatalf("expected role %q, got %q", RolePro, role)
	}
}

func TestJWTManagerExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, _, err := newTestManager(issued).Sign("user-001", RoleUser)
	if err != nil {
		t.Fatalf("unexpected sign error: %v", err)
	}

	manager := newTestManager(time.Now())
	if _, _, err := manager.Parse(token); err == nil {
		t.Fatalf("expected parse error for expired token")
	}

	sub, _, exp, err := manager.ParseIgnoringExpiry(token)
	if err != nil {
		t.Fatalf("unexpected error ignoring expiry: %v", err)
	}
	if sub != "user-001" {
		t.Fatalf("expected sub user-001, got %q", sub)
	}
	if exp.Unix() != issued.Add(time.Hour).Unix() {
		t.Fatalf("expected expiry from claims, got %s", exp)
	}
}

func TestJWTManagerParseRejectsInvalidSignature(t *testing.T) {
	manager := newTestManager(time.Now())

	forgedClaims := jwt.MapClaims{
		"sub":  "user-001",
		"role": RoleUser,
		"iss":  "issuer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	forgedToken := jwt.NewWithClaims(jwt.SigningMethodHS256, forgedClaims)
	tokenString, err := forgedToken.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign forged token: %v", err)
	}

	if _, _, err = manager.Parse(tokenString); err == nil {
		t.Fatalf("expected parse error for invalid signature")
	}
	if _, _, _, err = manager.ParseIgnoringExpiry(tokenString); err == nil {
		t.Fatalf("expected signature check even when ignoring expiry")
	}
}

func TestJWTManagerParseRejectsMissingSubClaim(t *testing.T) {
	manager := newTestManager(time.Now())

	claims := jwt.MapClaims{
		"role": RoleUser,
		"iss":  "issuer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(manager.secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, _, err = manager.Parse(tokenString)
	if err == nil {
		t.Fatalf("expected parse error for missing sub claim")
	}
	if !strings.Contains(err.Error(), "token missing sub claim") {
		t.Fatalf("expected missing sub error, got %v", err)
	}
}

func TestJWTManagerParseAllowsMissingRoleClaimAsEmptyString(t *testing.T) {
	manager := newTestManager(time.Now())

	claims := jwt.MapClaims{
		"sub": "user-001",
		"iss": "issuer",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(manager.secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	sub, role, err := manager.Parse(tokenString)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if sub != "user-001" {
		t.Fatalf("expected sub user-001, got %q", sub)
	}
	if role != "" {
		t.Fatalf("expected empty role when claim is missing, got %q", role)
	}
}
