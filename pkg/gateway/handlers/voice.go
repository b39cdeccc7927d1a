package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/config"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/lifecycle"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/metrics"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/voice/session"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/voice/sessions"
)

// VoiceHandler handles /ws-voice websocket sessions: one relay session per
// accepted connection.
type VoiceHandler struct {
	Config        config.Config
	OpenAI        *openai.Client
	Extractor     session.Extractor
	Webhook       session.WebhookDispatcher
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Lifecycle     *lifecycle.Lifecycle
	VoiceSessions *sessions.Tracker

	// DialUpstream overrides where the relay dials to; nil means the
	// configured OpenAI realtime endpoint.
	DialUpstream func(ctx context.Context) (session.UpstreamSession, error)
}

func (h VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Lifecycle != nil && h.Lifecycle.IsDraining() {
		writeErrorJSON(w, r, http.StatusServiceUnavailable, "server is draining", "draining")
		return
	}
	if !h.originAllowed(r) {
		writeErrorJSON(w, r, http.StatusForbidden, "origin is not allowed", "origin_forbidden")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	sessionID := "s_" + randHex(8)
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if reqID, ok := requestIDFromContext(r.Context()); ok {
		logger = logger.With("request_id", reqID)
	}

	dial := h.DialUpstream
	if dial == nil {
		dial = func(ctx context.Context) (session.UpstreamSession, error) {
			return h.OpenAI.DialRealtime(ctx)
		}
	}

	s, err := session.New(session.Dependencies{
		SessionID:    sessionID,
		Client:       conn,
		DialUpstream: dial,
		Extractor:    h.Extractor,
		Webhook:      h.Webhook,
		Logger:       logger,
		Metrics:      h.Metrics,
		Config: session.Config{
			PingInterval:       h.Config.ClientPingInterval,
			WriteTimeout:       h.Config.ClientWriteTimeout,
			MaxAudioFrameBytes: h.Config.MaxAudioFrameBytes,
			ExtractQueueSize:   h.Config.ExtractQueueSize,
			Upstream:           UpstreamSessionConfig(h.Config),
		},
	})
	if err != nil {
		logger.Error("failed to initialize voice session", "session_id", sessionID, "error", err)
		deadline := time.Now().Add(h.Config.ClientWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""), deadline)
		_ = conn.Close()
		return
	}

	unregister := func() {}
	if h.VoiceSessions != nil {
		unregister = h.VoiceSessions.Register(sessionID, sessions.Handle{
			Cancel: s.Cancel,
			Warn:   s.SendShutdownNotice,
		})
	}
	defer unregister()

	// Run owns the client socket from here and always leaves it closed; the
	// error has already been surfaced to the client as an error frame.
	_ = s.Run(r.Context())
}

func (h VoiceHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, allowed := range h.Config.CORSAllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// UpstreamSessionConfig maps the gateway configuration onto the one-time
// realtime session settings: text+audio modalities, PCM16 both ways, and
// server-side voice activity detection.
func UpstreamSessionConfig(cfg config.Config) openai.SessionConfig {
	return openai.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      cfg.Instructions,
		Voice:             cfg.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &openai.AudioTranscription{
			Model:    cfg.TranscriptionModel,
			Language: cfg.TranscriptionLanguage,
		},
		TurnDetection: &openai.TurnDetection{Type: "server_vad"},
	}
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000000000")))
	}
	return hex.EncodeToString(b)
}
