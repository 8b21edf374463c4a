package aiclient

import (
	"context"
	"time"

	"xinji/config"
	"xinji/models"
)

// LogWriter 는 ai_logs 저장소이다.
type LogWriter interface {
	Insert(ctx context.Context, log models.AILog) error
}

// LoggingClient 는 호출마다 ai_logs 문서를 남기고 timeout 으로 호출 시간을 제한한다.
type LoggingClient struct {
	next     Client
	logs     LogWriter
	provider string
	timeout  time.Duration
}

func NewLoggingClient(next Client, logs LogWriter, provider string, timeout time.Duration) *LoggingClient {
	return &LoggingClient{next: next, logs: logs, provider: provider, timeout: timeout}
}

func (c *LoggingClient) Complete(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestedAt := time.Now()
	resp, err := c.next.Complete(ctx, req)
	completedAt := time.Now()

	entry := models.AILog{
		Purpose:        req.Purpose,
		Provider:       c.provider,
		ModelName:      resp.Model,
		InputTokens:    resp.InputTokens,
		OutputTokens:   resp.OutputTokens,
		TotalTokens:    resp.TotalTokens,
		DurationMs:     completedAt.Sub(requestedAt).Milliseconds(),
		InputPrompt:    promptText(req.Messages),
		OutputResponse: resp.Content,
		RequestedAt:    requestedAt,
		CompletedAt:    completedAt,
	}
	if entry.ModelName == "" {
		entry.ModelName = req.Model
	}
	if err != nil {
		msg := err.Error()
		entry.ErrorMessage = &msg
	}

	if c.logs != nil {
		// 요청 ctx 가 timeout 으로 끝났어도 로그는 남긴다.
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if lerr := c.logs.Insert(logCtx, entry); lerr != nil {
			config.Logger.Warnf("failed to insert ai log: %v", lerr)
		}
	}
	return resp, err
}
