// Package server wires the relay's HTTP surface: pages, the text chat
// endpoint, the voice websocket, and the operational endpoints.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/frontdeskhq/frontdesk/pkg/booking"
	"github.com/frontdeskhq/frontdesk/pkg/chat"
	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/config"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/handlers"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/lifecycle"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/metrics"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/mw"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/voice/sessions"
)

const shutdownNotice = "server is shutting down"

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	router *mux.Router

	openai        *openai.Client
	metrics       *metrics.Metrics
	lifecycle     *lifecycle.Lifecycle
	voiceSessions *sessions.Tracker
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: 60 * time.Second,
	}

	openaiClient := openai.New(cfg.OpenAIAPIKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithHTTPClient(httpClient),
		openai.WithRealtimeURL(cfg.RealtimeURL),
		openai.WithRealtimeModel(cfg.RealtimeModel),
		openai.WithDialTimeout(cfg.UpstreamDialTimeout),
		openai.WithPingInterval(cfg.UpstreamPingInterval),
		openai.WithLogger(logger),
	)

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		router:        mux.NewRouter(),
		openai:        openaiClient,
		metrics:       metrics.New("frontdesk"),
		lifecycle:     &lifecycle.Lifecycle{},
		voiceSessions: sessions.NewTracker(),
	}

	dispatcher := booking.NewDispatcher(cfg.WebhookURL,
		booking.WithDispatchHTTPClient(httpClient),
		booking.WithDispatchLogger(logger),
	)
	extractor := booking.NewExtractor(openaiClient, cfg.ChatModel, logger)
	chatService := chat.NewService(openaiClient, dispatcher, chat.Config{
		Model:            cfg.ChatModel,
		Instructions:     cfg.Instructions,
		MaxConversations: cfg.ChatMaxConversations,
	}, logger)

	s.routes(extractor, dispatcher, chatService)
	return s
}

func (s *Server) routes(extractor *booking.Extractor, dispatcher *booking.Dispatcher, chatService *chat.Service) {
	r := s.router
	r.NotFoundHandler = handlers.NotFoundHandler{}
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.NotFoundHandler{}.ServeHTTP(w, req)
	})
	r.Use(mw.Metrics(s.metrics))

	compress := ghandlers.CompressHandler

	r.Handle("/", compress(handlers.PageHandler{Dir: s.cfg.StaticDir, File: "chat.html"})).Methods(http.MethodGet)
	r.Handle("/voice", compress(handlers.PageHandler{Dir: s.cfg.StaticDir, File: "voice.html"})).Methods(http.MethodGet)

	r.Handle("/chat", compress(handlers.ChatHandler{
		Service:      chatService,
		MaxBodyBytes: s.cfg.ChatMaxBodyBytes,
	})).Methods(http.MethodPost)

	// The websocket route is never compressed: the hijacked connection
	// must reach the handler unwrapped.
	r.Handle("/ws-voice", handlers.VoiceHandler{
		Config:        s.cfg,
		OpenAI:        s.openai,
		Extractor:     extractor,
		Webhook:       dispatcher,
		Logger:        s.logger,
		Metrics:       s.metrics,
		Lifecycle:     s.lifecycle,
		VoiceSessions: s.voiceSessions,
	}).Methods(http.MethodGet)

	r.Handle("/healthz", handlers.HealthHandler{}).Methods(http.MethodGet)
	r.Handle("/readyz", handlers.ReadyHandler{
		Config:        s.cfg,
		Lifecycle:     s.lifecycle,
		VoiceSessions: s.voiceSessions,
	}).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the full middleware stack.
func (s *Server) Handler() http.Handler {
	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins(s.cfg.CORSAllowedOrigins),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
	)

	var h http.Handler = s.router
	h = cors(h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness and makes the voice handler refuse new
// sessions.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WarnVoiceSessions tells every live voice session the server is going
// away.
func (s *Server) WarnVoiceSessions() int {
	return s.voiceSessions.WarnAll(shutdownNotice)
}

// WaitVoiceSessions blocks until every voice session ended or ctx expired.
func (s *Server) WaitVoiceSessions(ctx context.Context) bool {
	return s.voiceSessions.Wait(ctx)
}

// CancelVoiceSessions force-cancels the sessions still running.
func (s *Server) CancelVoiceSessions() int {
	return s.voiceSessions.CancelAll()
}
