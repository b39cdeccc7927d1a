// Package session implements the bidirectional relay between one browser
// voice connection and one upstream realtime session. Caller audio flows
// upstream as it arrives; upstream events fan out to the client as JSON and
// binary frames through a single writer that preserves arrival order.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
	"github.com/frontdeskhq/frontdesk/pkg/core/types"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/metrics"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/voice/protocol"
)

const (
	outboundPriorityQueueSize = 8

	// Shown to the client for any mid-session failure whose detail should
	// not leak (upstream errors carry internal request context).
	upstreamErrorMessage = "An error occurred with the AI service."

	defaultShutdownNotice = "server is shutting down"
)

// UpstreamSession is the realtime connection the relay forwards into. It is
// satisfied by *openai.RealtimeSession.
type UpstreamSession interface {
	Configure(ctx context.Context, cfg openai.SessionConfig) error
	AppendAudio(pcm []byte) error
	Events() <-chan openai.RealtimeEvent
	Err() error
	Close() error
}

// ClientConn is the browser-facing websocket connection. It is satisfied by
// *websocket.Conn.
type ClientConn interface {
	wsWriter
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	WriteJSON(v any) error
}

// Extractor derives a booking from a conversation, if one is present.
type Extractor interface {
	Extract(ctx context.Context, turns []types.Turn) (*types.Booking, error)
}

// WebhookDispatcher delivers a confirmed booking to the outside world.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, booking types.Booking) error
}

type Config struct {
	PingInterval       time.Duration
	WriteTimeout       time.Duration
	MaxAudioFrameBytes int64
	OutboundQueueSize  int
	ExtractQueueSize   int
	Upstream           openai.SessionConfig
}

type Dependencies struct {
	SessionID    string
	Client       ClientConn
	DialUpstream func(ctx context.Context) (UpstreamSession, error)
	Extractor    Extractor
	Webhook      WebhookDispatcher
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Config       Config
}

// Session relays one client connection for its full lifetime. Run drives the
// session; Cancel and SendShutdownNotice may be called from other goroutines.
type Session struct {
	client    ClientConn
	dial      func(ctx context.Context) (UpstreamSession, error)
	extractor Extractor
	webhook   WebhookDispatcher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sessionID string
	cfg       Config

	state atomic.Int32

	outboundPriority chan outboundFrame
	outboundNormal   chan outboundFrame
	extractCh        chan []types.Turn

	closing   chan struct{}
	closeOnce sync.Once

	log *conversationLog
}

func New(deps Dependencies) (*Session, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("client connection is required")
	}
	if deps.DialUpstream == nil {
		return nil, fmt.Errorf("upstream dialer is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.PingInterval <= 0 {
		deps.Config.PingInterval = 20 * time.Second
	}
	if deps.Config.WriteTimeout <= 0 {
		deps.Config.WriteTimeout = 5 * time.Second
	}
	if deps.Config.MaxAudioFrameBytes <= 0 {
		deps.Config.MaxAudioFrameBytes = 64 * 1024
	}
	if deps.Config.OutboundQueueSize <= 0 {
		deps.Config.OutboundQueueSize = 256
	}
	if deps.Config.ExtractQueueSize <= 0 {
		deps.Config.ExtractQueueSize = 8
	}

	s := &Session{
		client:           deps.Client,
		dial:             deps.DialUpstream,
		extractor:        deps.Extractor,
		webhook:          deps.Webhook,
		logger:           deps.Logger,
		metrics:          deps.Metrics,
		sessionID:        deps.SessionID,
		cfg:              deps.Config,
		outboundPriority: make(chan outboundFrame, outboundPriorityQueueSize),
		outboundNormal:   make(chan outboundFrame, deps.Config.OutboundQueueSize),
		extractCh:        make(chan []types.Turn, deps.Config.ExtractQueueSize),
		closing:          make(chan struct{}),
		log:              newConversationLog(deps.Config.Upstream.Instructions),
	}
	s.state.Store(int32(StateConnecting))
	return s, nil
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Transcript returns a copy of the conversation accumulated so far.
func (s *Session) Transcript() []types.Turn {
	return s.log.snapshot()
}

// Cancel asks the session to shut down. Safe to call multiple times and from
// any goroutine; Run still flushes queued priority frames before closing.
func (s *Session) Cancel() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// SendShutdownNotice queues a best-effort error frame telling the client the
// server is going away. Returns an error if the frame could not be queued.
func (s *Session) SendShutdownNotice(message string) error {
	if strings.TrimSpace(message) == "" {
		message = defaultShutdownNotice
	}
	if !s.enqueuePriorityError(message) {
		return fmt.Errorf("shutdown notice dropped")
	}
	return nil
}

// Run relays until either side closes or fails. It owns the client socket
// from this point on and always leaves it closed.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.cfg.MaxAudioFrameBytes > 0 {
		s.client.SetReadLimit(s.cfg.MaxAudioFrameBytes)
	}

	upstream, err := s.connect(ctx)
	if err != nil {
		return err
	}

	s.transition(StateActive)
	s.metrics.RecordSessionStarted()
	started := time.Now()
	defer func() { s.metrics.RecordSessionEnded(time.Since(started)) }()
	s.logger.Info("voice session active", "session_id", s.sessionID)

	writer := &outboundWriter{
		ws:       s.client,
		ctx:      ctx,
		cfg:      s.cfg,
		priority: s.outboundPriority,
		normal:   s.outboundNormal,
	}

	writerErrCh := make(chan error, 1)
	clientErrCh := make(chan error, 1)
	upstreamErrCh := make(chan error, 1)
	writerDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		defer close(writerDone)
		writerErrCh <- writer.Run()
	}()
	go func() {
		defer wg.Done()
		clientErrCh <- s.clientLoop(ctx, upstream)
	}()
	go func() {
		defer wg.Done()
		upstreamErrCh <- s.dispatchLoop(ctx, upstream)
	}()
	go func() {
		defer wg.Done()
		s.extractWorker(ctx)
	}()

	var runErr error
	select {
	case runErr = <-writerErrCh:
	case runErr = <-clientErrCh:
	case runErr = <-upstreamErrCh:
	case <-ctx.Done():
	}

	s.transition(StateClosing)
	if runErr != nil {
		s.enqueuePriorityError(clientErrorMessage(runErr))
	}
	cancel()
	_ = upstream.Close()

	// The writer flushes priority frames and closes the client socket on its
	// cancellation path; close again afterwards so a writer that died on a
	// write error still unblocks the client read loop.
	<-writerDone
	_ = s.client.Close()
	wg.Wait()

	s.transition(StateClosed)
	if runErr != nil {
		s.logger.Warn("voice session ended with error", "session_id", s.sessionID, "error", runErr)
	} else {
		s.logger.Info("voice session ended", "session_id", s.sessionID)
	}
	return runErr
}

// connect dials and configures the upstream session. On failure the client
// receives one error frame and a close frame, and the session is Failed.
func (s *Session) connect(ctx context.Context) (UpstreamSession, error) {
	upstream, err := s.dial(ctx)
	if err != nil {
		s.logger.Error("upstream dial failed", "session_id", s.sessionID, "error", err)
		s.transition(StateFailed)
		s.failClient(clientErrorMessage(err))
		return nil, err
	}

	s.transition(StateConfiguring)
	if err := upstream.Configure(ctx, s.cfg.Upstream); err != nil {
		s.logger.Error("upstream configure failed", "session_id", s.sessionID, "error", err)
		_ = upstream.Close()
		s.transition(StateFailed)
		s.failClient(clientErrorMessage(err))
		return nil, err
	}
	return upstream, nil
}

// clientLoop forwards inbound binary audio frames to the upstream session.
// Text frames from the client are ignored.
func (s *Session) clientLoop(ctx context.Context, upstream UpstreamSession) error {
	for {
		messageType, data, err := s.client.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || isClientHangup(err) {
				return nil
			}
			return core.NewTransportClosedError("client", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		s.metrics.RecordAudioIn(len(data))
		if err := upstream.AppendAudio(data); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// dispatchLoop consumes upstream events in arrival order and queues the
// corresponding client frames.
func (s *Session) dispatchLoop(ctx context.Context, upstream UpstreamSession) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-upstream.Events():
			if !ok {
				if err := upstream.Err(); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}
			s.metrics.RecordUpstreamEvent(metricEventType(ev))
			if err := s.dispatchEvent(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// metricEventType collapses unrecognized upstream events to a fixed label.
// The raw wire tag is upstream-controlled and must not become a metric
// dimension.
func metricEventType(ev openai.RealtimeEvent) string {
	if _, ok := ev.(*openai.UnknownEvent); ok {
		return "unknown"
	}
	return ev.EventType()
}

func (s *Session) dispatchEvent(ctx context.Context, ev openai.RealtimeEvent) error {
	switch e := ev.(type) {
	case *openai.AudioDeltaEvent:
		s.metrics.RecordAudioOut(len(e.Audio))
		return s.enqueueBinary(ctx, e.Audio)
	case *openai.TranscriptDeltaEvent:
		s.log.appendAssistantDelta(e.Text)
		return s.enqueueJSON(ctx, protocol.NewTranscript(e.Text))
	case *openai.UserTranscriptEvent:
		if e.Text != "" {
			s.log.appendUser(e.Text)
			s.enqueueExtraction()
		}
		return s.enqueueJSON(ctx, protocol.NewUserTranscript(e.Text))
	case *openai.ResponseDoneEvent:
		s.log.flushAssistant()
		return s.enqueueJSON(ctx, protocol.NewResponseEnd())
	case *openai.ErrorEvent:
		// Session keeps relaying; the client sees a sanitized message, on the
		// normal lane so it lands in order with surrounding frames.
		s.logger.Warn("upstream error event", "session_id", s.sessionID, "code", e.Code, "message", e.Message)
		return s.enqueueJSON(ctx, protocol.NewServerError(upstreamErrorMessage))
	default:
		return nil
	}
}

func (s *Session) enqueueJSON(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode client message: %w", err)
	}
	select {
	case s.outboundNormal <- outboundFrame{textPayload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) enqueueBinary(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	select {
	case s.outboundNormal <- outboundFrame{binaryPayload: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) enqueuePriorityError(message string) bool {
	payload, err := json.Marshal(protocol.NewServerError(message))
	if err != nil {
		return false
	}
	select {
	case s.outboundPriority <- outboundFrame{textPayload: payload}:
		return true
	default:
		return false
	}
}

// enqueueExtraction hands the worker a snapshot of the conversation. When the
// queue is full the utterance is skipped rather than stalling the relay; a
// later utterance carries the full history anyway.
func (s *Session) enqueueExtraction() {
	if s.extractor == nil {
		return
	}
	turns := s.log.snapshot()
	select {
	case s.extractCh <- turns:
	default:
		s.logger.Warn("extraction queue full, skipping utterance", "session_id", s.sessionID)
		s.metrics.RecordExtraction("dropped")
	}
}

func (s *Session) extractWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case turns := <-s.extractCh:
			s.runExtraction(ctx, turns)
		}
	}
}

// runExtraction never fails the session: extraction and webhook errors are
// logged and dropped.
func (s *Session) runExtraction(ctx context.Context, turns []types.Turn) {
	booking, err := s.extractor.Extract(ctx, turns)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("booking extraction failed", "session_id", s.sessionID, "error", err)
		s.metrics.RecordExtraction("error")
		return
	}
	if booking == nil {
		s.metrics.RecordExtraction("none")
		return
	}
	s.metrics.RecordExtraction("booked")
	s.logger.Info("booking extracted, dispatching webhook",
		"session_id", s.sessionID,
		"service", booking.Service,
		"date", booking.Date,
		"time", booking.Time,
	)
	if s.webhook == nil {
		s.logger.Warn("no webhook dispatcher configured, dropping booking", "session_id", s.sessionID)
		return
	}
	if err := s.webhook.Dispatch(ctx, *booking); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("booking webhook delivery failed", "session_id", s.sessionID, "error", err)
		s.metrics.RecordWebhook("error")
		return
	}
	s.metrics.RecordWebhook("ok")
}

// failClient is used before the writer starts: one error frame, a close
// frame, then the socket is gone.
func (s *Session) failClient(message string) {
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	_ = s.client.SetWriteDeadline(deadline)
	_ = s.client.WriteJSON(protocol.NewServerError(message))
	_ = s.client.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = s.client.Close()
}

func (s *Session) transition(to State) {
	for {
		from := State(s.state.Load())
		if !canTransition(from, to) {
			if from != to {
				s.logger.Warn("invalid session state transition",
					"session_id", s.sessionID,
					"from", from.String(),
					"to", to.String(),
				)
			}
			return
		}
		if s.state.CompareAndSwap(int32(from), int32(to)) {
			return
		}
	}
}

// clientErrorMessage maps an internal failure to the string the browser may
// see. Handshake rejections keep their status code; everything else is
// collapsed to a generic message.
func clientErrorMessage(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) && ce.Type == core.ErrHandshakeRejected {
		if ce.Status > 0 {
			return fmt.Sprintf("upstream connection failed with status %d", ce.Status)
		}
		return "upstream connection failed"
	}
	return upstreamErrorMessage
}

func isClientHangup(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
