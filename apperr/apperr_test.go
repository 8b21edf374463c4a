package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound("日记不存在"), http.StatusNotFound},
		{"forbidden", Forbidden("无权访问"), http.StatusForbidden},
		{"bad request", BadRequest("参数错误"), http.StatusBadRequest},
		{"rate limited", TooManyRequests("请稍后再试"), http.StatusTooManyRequests},
		{"unauthorized", Unauthorized("token无效"), http.StatusUnauthorized},
		{"wrapped", fmt.Errorf("load diary: %w", NotFound("日记不存在")), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "保存失败", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "保存失败: connection reset", err.Error())
	assert.Equal(t, "服务器内部错误", PublicMessage(err))
	assert.Equal(t, "请2分钟后重试", PublicMessage(TooManyRequests("请2分钟后重试")))
	assert.True(t, Is(fmt.Errorf("x: %w", Forbidden("no")), KindForbidden))
}
