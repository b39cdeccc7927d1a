// Package openai is the relay's client for the two OpenAI surfaces it
// depends on: REST chat completions for tool-calling and the realtime
// websocket for live audio sessions.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the REST API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultRealtimeURL is the websocket endpoint for realtime sessions.
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"

	// DefaultRealtimeModel is the realtime model requested at dial time.
	DefaultRealtimeModel = "gpt-4o-realtime-preview-2024-12-17"

	defaultDialTimeout  = 15 * time.Second
	defaultPingInterval = 20 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Client issues authenticated calls against both API surfaces. It is safe
// for concurrent use; realtime sessions it opens carry their own state.
type Client struct {
	apiKey        string
	baseURL       string
	realtimeURL   string
	realtimeModel string
	httpClient    *http.Client
	logger        *slog.Logger
	dialTimeout   time.Duration
	pingInterval  time.Duration
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		realtimeURL:   DefaultRealtimeURL,
		realtimeModel: DefaultRealtimeModel,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		dialTimeout:   defaultDialTimeout,
		pingInterval:  defaultPingInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) doRequest(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, c.parseError(resp)
	}
	return resp, nil
}
