// Package openrouter talks to OpenRouter, or any OpenAI-compatible chat
// completions endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/npratt/nova/internal/llm"
)

// DefaultBaseURL is OpenRouter's API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// maxErrorBody caps how much of an error response is kept for logs.
const maxErrorBody = 4096

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Referer     string // Sent as HTTP-Referer for OpenRouter attribution
	Title       string // Sent as X-Title
}

// Client is an llm.Completer for OpenAI-compatible endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens metric.Int64Counter
}

// New creates a client. The API key is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openrouter api key: %w", llm.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	tokens, err := meter.Int64Counter("nova.llm.tokens",
		metric.WithDescription("Tokens consumed by chat completions"),
		metric.WithUnit("{token}"))
	if err != nil {
		logger.Warn("failed to create token counter", "error", err)
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return "openrouter" }

// Model returns the default model.
func (c *Client) Model() string { return c.cfg.Model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the conversation and returns the first choice. A reply
// with no content returns llm.ErrEmptyReply.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.Model == "" {
		body.Model = c.cfg.Model
	}
	if body.Temperature == 0 {
		body.Temperature = c.cfg.Temperature
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}
	if req.System != "" {
		body.Messages = append(body.Messages, llm.Message{Role: llm.RoleSystem, Content: req.System})
	}
	body.Messages = append(body.Messages, req.Messages...)

	ctx, span := tracer.Start(ctx, "openrouter.complete", trace.WithAttributes(
		attribute.String("llm.model", body.Model),
		attribute.Int("llm.messages", len(body.Messages)),
	))
	defer span.End()

	resp, err := c.do(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.CompletionTokens),
	)
	if c.tokens != nil {
		c.tokens.Add(ctx, int64(resp.PromptTokens+resp.CompletionTokens),
			metric.WithAttributes(attribute.String("llm.model", resp.Model)))
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, body chatRequest) (*llm.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		httpReq.Header.Set("X-Title", c.cfg.Title)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		logger.ErrorContext(ctx, "openrouter request failed",
			"status", httpResp.StatusCode, "body", string(errBody))
		return nil, fmt.Errorf("openrouter error (status %d): %s", httpResp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return nil, llm.ErrEmptyReply
	}

	model := decoded.Model
	if model == "" {
		model = body.Model
	}
	return &llm.Response{
		Content:          decoded.Choices[0].Message.Content,
		Model:            model,
		FinishReason:     decoded.Choices[0].FinishReason,
		PromptTokens:     decoded.Usage.PromptTokens,
		CompletionTokens: decoded.Usage.CompletionTokens,
	}, nil
}
