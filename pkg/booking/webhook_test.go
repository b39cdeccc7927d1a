package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

func bookingFixture() types.Booking {
	return types.Booking{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "555-0100",
		Service: "haircut",
		Date:    "2025-03-01",
		Time:    "10:00",
	}
}

func TestDispatcher_PostsBookingWithAction(t *testing.T) {
	var gotContentType string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, WithDispatchHTTPClient(server.Client()))
	if err := d.Dispatch(context.Background(), bookingFixture()); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type=%q, want application/json", gotContentType)
	}
	if gotBody["action"] != "book" {
		t.Errorf("action=%v, want book", gotBody["action"])
	}
	if gotBody["name"] != "Jane Doe" || gotBody["service"] != "haircut" || gotBody["time"] != "10:00" {
		t.Errorf("payload fields wrong: %v", gotBody)
	}
}

func TestDispatcher_AcceptsAny2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, WithDispatchHTTPClient(server.Client()))
	if err := d.Dispatch(context.Background(), bookingFixture()); err != nil {
		t.Fatalf("Dispatch() error on 202: %v", err)
	}
}

func TestDispatcher_Non2xxIsWebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scenario not found", http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, WithDispatchHTTPClient(server.Client()))
	err := d.Dispatch(context.Background(), bookingFixture())
	if err == nil {
		t.Fatalf("expected error on 404")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrWebhook {
		t.Fatalf("error = %v, want webhook_failure", err)
	}
	if ce.Status != http.StatusNotFound {
		t.Fatalf("Status=%d, want 404", ce.Status)
	}
}

func TestDispatcher_MissingURLFailsWithoutRequest(t *testing.T) {
	d := NewDispatcher("")
	err := d.Dispatch(context.Background(), bookingFixture())
	if err == nil {
		t.Fatalf("expected error with no webhook url")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrWebhook {
		t.Fatalf("error = %v, want webhook_failure", err)
	}
}
