package middleware

import (
	"github.com/gin-gonic/gin"

	"xinji/cmd/api/auth"
	"xinji/cmd/api/trace"
	"xinji/config"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// TokenParser 는 auth.JWTManager 가 구현한다.
type TokenParser interface {
	Parse(token string) (sub, role string, err error)
}

// UserAuth 는 Bearer JWT 를 검증하고 user_id, role 을 컨텍스트에 저장한다.
func UserAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c)
		if err != nil {
			auth.AbortWithUnauthorized(c, err)
			return
		}

		userID, role, err := tokens.Parse(token)
		if err != nil {
			config.WarnWithFields("token rejected", config.Fields{
				"request_id": trace.RequestIDFromContext(c.Request.Context()),
				"error":      err.Error(),
			})
			auth.AbortWithUnauthorized(c, err)
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// UserID 는 UserAuth 를 통과한 요청에서만 의미가 있다.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
