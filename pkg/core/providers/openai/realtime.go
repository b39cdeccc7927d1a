package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdeskhq/frontdesk/pkg/core"
)

const realtimeEventBuffer = 32

var errSessionClosed = errors.New("session closed")

// SessionConfig is the realtime session configuration sent once at open
// time. There is no reconfiguration: all fields are fixed before the
// first audio frame flows.
type SessionConfig struct {
	Modalities              []string            `json:"modalities"`
	Instructions            string              `json:"instructions"`
	Voice                   string              `json:"voice,omitempty"`
	InputAudioFormat        string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string              `json:"output_audio_format,omitempty"`
	InputAudioTranscription *AudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection      `json:"turn_detection,omitempty"`
}

// AudioTranscription selects the input transcription model.
type AudioTranscription struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

// TurnDetection selects the endpointing strategy. The relay always runs
// server-side VAD; clients never endpoint.
type TurnDetection struct {
	Type string `json:"type"`
}

type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type appendAudioEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// RealtimeSession is one live websocket session against the realtime API.
// A single internal goroutine reads the socket and surfaces decoded
// events on Events(); the channel closes when the upstream closes,
// cleanly or abruptly, and Err reports the abnormal cause if any.
type RealtimeSession struct {
	conn         *websocket.Conn
	logger       *slog.Logger
	pingInterval time.Duration

	events  chan RealtimeEvent
	done    chan struct{}
	closing chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// DialRealtime opens a realtime websocket session. The handshake carries
// the bearer key and the realtime beta header; a rejected handshake
// surfaces the upstream HTTP status, a transport-level failure surfaces
// as a closed transport.
func (c *Client) DialRealtime(ctx context.Context) (*RealtimeSession, error) {
	endpoint := c.realtimeURL
	if c.realtimeModel != "" {
		endpoint += "?model=" + url.QueryEscape(c.realtimeModel)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.dialTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, core.NewHandshakeRejectedError(resp.StatusCode, fmt.Sprintf("upstream rejected websocket handshake: %s", resp.Status))
		}
		return nil, core.NewTransportClosedError("upstream", err)
	}

	s := &RealtimeSession{
		conn:         conn,
		logger:       c.logger,
		pingInterval: c.pingInterval,
		events:       make(chan RealtimeEvent, realtimeEventBuffer),
		done:         make(chan struct{}),
		closing:      make(chan struct{}),
	}
	if s.pingInterval <= 0 {
		s.pingInterval = defaultPingInterval
	}

	// Pings keep the long-lived connection alive; each pong extends the
	// read horizon.
	pongWait := 2 * s.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

// Configure sends the one-time session.update event. Call before any
// audio is appended; a failure here means the session never opened.
func (s *RealtimeSession) Configure(ctx context.Context, cfg SessionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sendJSON(sessionUpdateEvent{Type: "session.update", Session: cfg})
}

// AppendAudio forwards one chunk of caller PCM to the upstream input
// buffer as a base64 append event. Events are written in call order;
// callers that need strict ordering send from one goroutine.
func (s *RealtimeSession) AppendAudio(pcm []byte) error {
	return s.sendJSON(appendAudioEvent{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// Events returns the inbound event stream. The channel closes when the
// upstream connection ends; the stream is not restartable.
func (s *RealtimeSession) Events() <-chan RealtimeEvent {
	return s.events
}

// Err reports why the event stream terminated: nil after a clean upstream
// close or a local Close, the transport error otherwise.
func (s *RealtimeSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close tears the session down: best-effort close frame, socket close,
// then waits for the reader to finish. Safe to call more than once and
// concurrently with senders.
func (s *RealtimeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closing)
		deadline := time.Now().Add(2 * time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *RealtimeSession) sendJSON(v any) error {
	if s.closed.Load() {
		return core.NewTransportClosedError("upstream", errSessionClosed)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		return core.NewTransportClosedError("upstream", err)
	}
	return nil
}

func (s *RealtimeSession) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *RealtimeSession) readLoop() {
	defer close(s.events)
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.setErr(core.NewTransportClosedError("upstream", err))
			return
		}

		event, err := decodeRealtimeEvent(data)
		if err != nil {
			// Malformed payloads are dropped; the stream continues.
			if s.logger != nil {
				s.logger.Warn("dropping malformed upstream event", "error", err)
			}
			continue
		}

		select {
		case s.events <- event:
		case <-s.closing:
			return
		}
	}
}

func (s *RealtimeSession) pingLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(defaultWriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
