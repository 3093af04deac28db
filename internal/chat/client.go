package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/npratt/nova/internal/history"
)

const maxErrorBody = 4 << 10

// ClientConfig configures a relay client.
type ClientConfig struct {
	// Endpoint is the relay base URL, e.g. http://127.0.0.1:8787.
	Endpoint string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
}

// Client talks to the chat relay over HTTP.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a relay client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("chat endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid chat endpoint: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(cfg.Endpoint, "/"),
		token: cfg.Token,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}, nil
}

type sendRequest struct {
	Message   string `json:"message"`
	VisitorID string `json:"visitor_id"`
}

type errorBody struct {
	Error string `json:"error"`
}

type historyBody struct {
	Messages []history.Message `json:"messages"`
}

// Send posts a user message and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, visitorID, message string) (*Reply, error) {
	body, err := json.Marshal(sendRequest{Message: message, VisitorID: visitorID})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var reply Reply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History returns up to limit of the visitor's most recent messages,
// oldest first.
func (c *Client) History(ctx context.Context, visitorID string, limit int) ([]Message, error) {
	q := url.Values{}
	q.Set("visitor_id", visitorID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/history?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create history request: %w", err)
	}

	var body historyBody
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		out = append(out, Message{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return fmt.Errorf("relay returned %d: %s", resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	return nil
}
