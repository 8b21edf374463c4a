package aiclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"
)

// OpenAIClient 는 OpenAI 호환 /chat/completions 엔드포인트(예: DashScope compatible-mode)를 호출한다.
type OpenAIClient struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
}

func NewOpenAIClient(baseURL, apiKey, model string, retryAttempts uint) *OpenAIClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &OpenAIClient{
		httpClient:       client,
		model:            model,
		maxRetryAttempts: retryAttempts,
	}
}

func (c *OpenAIClient) Close() error {
	return c.httpClient.Close()
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}
	if strings.Contains(errStr, "response error 5") {
		return true
	}
	if strings.Contains(errStr, "response error 429") {
		return true
	}
	return false
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	var result Response
	if err := retry.Do(
		func() error {
			resp, err := c.complete(ctx, req)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return Response{}, err
	}
	return result, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body := chatCompletionRequest{Model: model, Messages: req.Messages}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&chatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return Response{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return Response{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*chatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return Response{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	return Response{
		Content:      responseBody.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  responseBody.Usage.PromptTokens,
		OutputTokens: responseBody.Usage.CompletionTokens,
		TotalTokens:  responseBody.Usage.TotalTokens,
		Latency:      time.Since(start),
	}, nil
}
