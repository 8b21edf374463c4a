// Package aiclient 는 감정 분석과 주간 요약에 쓰는 chat-completion 클라이언트이다.
package aiclient

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request 의 Model 이 비어 있으면 클라이언트 기본 모델을 쓴다.
// Purpose 는 ai_logs 에만 기록되는 호출 구분값이다.
type Request struct {
	Model    string
	Messages []Message
	JSONMode bool
	Purpose  string
}

type Response struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Latency      time.Duration
}

type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// StripCodeFence 는 응답 앞뒤의 ```json ... ``` 마크다운 펜스를 제거한다.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// 첫 줄은 언어 태그(json 등)이다.
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func promptText(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
