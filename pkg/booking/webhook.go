package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher posts confirmed bookings to an automation webhook. Delivery is
// single-shot: a failed delivery is reported, never retried.
type Dispatcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

type DispatcherOption func(*Dispatcher)

func WithDispatchHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher builds a Dispatcher for the given webhook URL. An empty URL
// is allowed; every Dispatch then fails with a webhook error.
func NewDispatcher(url string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: defaultDispatchTimeout},
		logger:     slog.Default(),
		timeout:    defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers one booking. Success is any 2xx response.
func (d *Dispatcher) Dispatch(ctx context.Context, booking types.Booking) error {
	if d.url == "" {
		d.logger.Warn("webhook url not configured, booking not delivered")
		return core.NewWebhookError("webhook url not configured", 0)
	}

	payload := struct {
		types.Booking
		Action string `json:"action"`
	}{Booking: booking, Action: "book"}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal booking payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver booking webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.NewWebhookError(fmt.Sprintf("webhook returned status %d", resp.StatusCode), resp.StatusCode)
	}
	return nil
}
