package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdeskhq/frontdesk/pkg/core"
)

// startFakeUpstream runs a websocket server whose behavior is supplied by
// handle; it is given the upgraded connection and the original request.
func startFakeUpstream(t *testing.T, handle func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func readClientEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("upstream read: %v", err)
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Errorf("upstream decode: %v", err)
		return nil
	}
	return out
}

func waitEvent(t *testing.T, events <-chan RealtimeEvent) RealtimeEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatalf("event channel closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func TestDialRealtime_HandshakeConfigureAndEvents(t *testing.T) {
	handshake := make(chan *http.Request, 1)

	wsURL := startFakeUpstream(t, func(conn *websocket.Conn, r *http.Request) {
		handshake <- r

		update := readClientEvent(t, conn)
		if update == nil {
			return
		}
		if update["type"] != "session.update" {
			t.Errorf("first event type=%v, want session.update", update["type"])
		}
		session, _ := update["session"].(map[string]any)
		if session["voice"] != "alloy" {
			t.Errorf("voice=%v, want alloy", session["voice"])
		}
		td, _ := session["turn_detection"].(map[string]any)
		if td["type"] != "server_vad" {
			t.Errorf("turn_detection=%v, want server_vad", td)
		}

		appended := readClientEvent(t, conn)
		if appended == nil {
			return
		}
		if appended["type"] != "input_audio_buffer.append" {
			t.Errorf("second event type=%v, want input_audio_buffer.append", appended["type"])
		}
		if appended["audio"] != base64.StdEncoding.EncodeToString([]byte("pcm-bytes")) {
			t.Errorf("audio=%v not the expected base64", appended["audio"])
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"response.audio_transcript.delta","delta":"Hi"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"response.done"}`))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})

	c := New("rt-key", WithRealtimeURL(wsURL), WithPingInterval(time.Hour))
	session, err := c.DialRealtime(context.Background())
	if err != nil {
		t.Fatalf("DialRealtime() error: %v", err)
	}
	defer session.Close()

	r := <-handshake
	if got := r.Header.Get("Authorization"); got != "Bearer rt-key" {
		t.Fatalf("Authorization=%q, want Bearer rt-key", got)
	}
	if got := r.Header.Get("OpenAI-Beta"); got != "realtime=v1" {
		t.Fatalf("OpenAI-Beta=%q, want realtime=v1", got)
	}
	if got := r.URL.Query().Get("model"); got != DefaultRealtimeModel {
		t.Fatalf("model=%q, want %q", got, DefaultRealtimeModel)
	}

	err = session.Configure(context.Background(), SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      "You are a receptionist.",
		Voice:             "alloy",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection:     &TurnDetection{Type: "server_vad"},
	})
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	if err := session.AppendAudio([]byte("pcm-bytes")); err != nil {
		t.Fatalf("AppendAudio() error: %v", err)
	}

	ev := waitEvent(t, session.Events())
	delta, ok := ev.(*TranscriptDeltaEvent)
	if !ok {
		t.Fatalf("event type %T, want *TranscriptDeltaEvent", ev)
	}
	if delta.Text != "Hi" {
		t.Fatalf("delta=%q, want Hi", delta.Text)
	}

	ev = waitEvent(t, session.Events())
	if _, ok := ev.(*ResponseDoneEvent); !ok {
		t.Fatalf("event type %T, want *ResponseDoneEvent", ev)
	}

	select {
	case _, open := <-session.Events():
		if open {
			t.Fatalf("expected event channel to close after upstream close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}

	if err := session.Err(); err != nil {
		t.Fatalf("Err()=%v, want nil after clean close", err)
	}
}

func TestDialRealtime_RejectedHandshakePropagatesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing beta header", http.StatusUnauthorized)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	c := New("rt-key", WithRealtimeURL(wsURL))

	_, err := c.DialRealtime(context.Background())
	if err == nil {
		t.Fatalf("expected dial error")
	}
	var ce *core.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error type %T, want *core.Error", err)
	}
	if ce.Type != core.ErrHandshakeRejected {
		t.Fatalf("Type=%q, want handshake_rejected", ce.Type)
	}
	if ce.Status != http.StatusUnauthorized {
		t.Fatalf("Status=%d, want 401", ce.Status)
	}
}

func TestRealtimeSession_AbruptCloseSurfacesErr(t *testing.T) {
	wsURL := startFakeUpstream(t, func(conn *websocket.Conn, r *http.Request) {
		// Drop the TCP connection without a close frame.
		_ = conn.UnderlyingConn().Close()
	})

	c := New("rt-key", WithRealtimeURL(wsURL), WithPingInterval(time.Hour))
	session, err := c.DialRealtime(context.Background())
	if err != nil {
		t.Fatalf("DialRealtime() error: %v", err)
	}
	defer session.Close()

	select {
	case _, open := <-session.Events():
		if open {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}

	err = session.Err()
	if err == nil {
		t.Fatalf("expected transport error after abrupt close")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrTransportClosed {
		t.Fatalf("err=%v, want transport_closed", err)
	}
}

func TestRealtimeSession_CloseIsIdempotentAndStopsSends(t *testing.T) {
	wsURL := startFakeUpstream(t, func(conn *websocket.Conn, r *http.Request) {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New("rt-key", WithRealtimeURL(wsURL), WithPingInterval(time.Hour))
	session, err := c.DialRealtime(context.Background())
	if err != nil {
		t.Fatalf("DialRealtime() error: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	err = session.AppendAudio([]byte("late"))
	if err == nil {
		t.Fatalf("expected error appending after close")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrTransportClosed {
		t.Fatalf("err=%v, want transport_closed", err)
	}
}
