package dto

import (
	"net/http"
	"time"
)

const MessageOK = "成功"

// Response 는 모든 API 응답의 공통 envelope 이다.
// 성공이면 code=200, 실패면 HTTP 상태 코드와 같은 code 를 쓴다.
type Response struct {
	Code      int    `json:"code" example:"200"`
	Message   string `json:"message" example:"成功"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp" example:"2025-01-08T12:00:00"`
}

// ErrorResponseDTO 는 swagger 문서용 실패 응답 형태이다.
type ErrorResponseDTO struct {
	Code      int    `json:"code" example:"404"`
	Message   string `json:"message" example:"日记不存在"`
	Timestamp string `json:"timestamp" example:"2025-01-08T12:00:00"`
}

// WechatNotifyAck 는 결제 통지 응답이다. 위챗은 SUCCESS 가 아니면 다시 통지한다.
type WechatNotifyAck struct {
	Code    string `json:"code" example:"SUCCESS"`
	Message string `json:"message" example:"成功"`
}

const timestampLayout = "2006-01-02T15:04:05"

func OK(data any) Response {
	return Response{Code: http.StatusOK, Message: MessageOK, Data: data, Timestamp: now()}
}

func OKMessage(msg string) Response {
	return Response{Code: http.StatusOK, Message: msg, Timestamp: now()}
}

func Fail(code int, msg string) Response {
	return Response{Code: code, Message: msg, Timestamp: now()}
}

func now() string {
	return time.Now().Format(timestampLayout)
}
