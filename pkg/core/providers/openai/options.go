package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the REST API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient supplies the HTTP client used for REST calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRealtimeURL overrides the realtime websocket endpoint.
func WithRealtimeURL(realtimeURL string) Option {
	return func(c *Client) {
		c.realtimeURL = realtimeURL
	}
}

// WithRealtimeModel selects the model requested when dialing a realtime
// session. Empty means no model query parameter.
func WithRealtimeModel(model string) Option {
	return func(c *Client) {
		c.realtimeModel = model
	}
}

// WithLogger sets the logger realtime sessions use for non-fatal decode
// problems.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialTimeout bounds the realtime websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithPingInterval sets the realtime heartbeat cadence.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}
