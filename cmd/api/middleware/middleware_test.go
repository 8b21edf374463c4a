package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/cmd/api/trace"
)

type stubParser struct {
	sub, role string
	err       error
}

func (s stubParser) Parse(string) (string, string, error) { return s.sub, s.role, s.err }

func TestUserAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name       string
		header     string
		parser     stubParser
		wantStatus int
		wantUser   string
	}{
		{name: "missing header", parser: stubParser{sub: "u1"}, wantStatus: http.StatusUnauthorized},
		{name: "parser rejects", header: "Bearer x", parser: stubParser{err: errors.New("expired")}, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer x", parser: stubParser{sub: "u1", role: "user"}, wantStatus: http.StatusOK, wantUser: "u1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var seenUser, seenRole string
			r := gin.New()
			r.GET("/p", UserAuth(tc.parser), func(c *gin.Context) {
				seenUser = UserID(c)
				seenRole = c.GetString(ContextRole)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantUser, seenUser)
			if tc.wantUser != "" {
				assert.Equal(t, "user", seenRole)
			}
		})
	}
}

func TestRequestTrace_PropagatesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var ctxRequestID string
	r := gin.New()
	r.Use(RequestTrace())
	r.GET("/p", func(c *gin.Context) {
		ctxRequestID = trace.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "req-1", ctxRequestID)
	assert.NotEmpty(t, w.Header().Get("X-Span-Id"))

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	generated := w.Header().Get("X-Request-Id")
	assert.Len(t, generated, 32)
	assert.Equal(t, generated, ctxRequestID)
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestTrace(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `"服务器内部错误"`, jsonField(t, w.Body.Bytes(), "message"))
}

func jsonField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[key])
}
