package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"xinji/cmd/api/dto"
	"xinji/cmd/api/trace"
	"xinji/config"
)

// Recovery 는 핸들러 panic 을 500 envelope 로 바꾼다.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		config.ErrorWithFields("panic recovered", config.Fields{
			"request_id": trace.RequestIDFromContext(c.Request.Context()),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.Fail(http.StatusInternalServerError, "服务器内部错误"))
	})
}
