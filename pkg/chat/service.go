// Package chat implements the text-chat receptionist: the same booking
// conversation as the voice path, driven by plain request/response chat
// completions with per-conversation history.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frontdeskhq/frontdesk/pkg/booking"
	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

// User-facing reply strings. The client renders these verbatim.
const (
	replyBookingFailed = "❌ Booking failed. Please try again."
	replyModelTrouble  = "Sorry, I'm having trouble connecting to my brain right now. Please try again later."
)

// Dispatcher delivers a booking committed by the model. Satisfied by
// *booking.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, booking types.Booking) error
}

type Config struct {
	Model            string
	Instructions     string
	MaxConversations int
}

// Service owns conversation state and turns one user message into one
// assistant reply.
type Service struct {
	client       *openai.Client
	dispatcher   Dispatcher
	store        *Store
	model        string
	instructions string
	logger       *slog.Logger
}

func NewService(client *openai.Client, dispatcher Dispatcher, cfg Config, logger *slog.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = booking.DefaultExtractionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:       client,
		dispatcher:   dispatcher,
		store:        NewStore(cfg.MaxConversations),
		model:        cfg.Model,
		instructions: cfg.Instructions,
		logger:       logger,
	}
}

// Reply appends the user message to the conversation and returns the
// assistant's answer. Model and webhook failures never escape: the caller
// always gets a renderable reply.
func (s *Service) Reply(ctx context.Context, conversationID, message string) string {
	turns := s.store.History(conversationID)
	if len(turns) == 0 && strings.TrimSpace(s.instructions) != "" {
		seed := types.Turn{Role: types.RoleSystem, Content: s.instructions}
		s.store.Append(conversationID, seed)
		turns = append(turns, seed)
	}
	if message = strings.TrimSpace(message); message != "" {
		userTurn := types.Turn{Role: types.RoleUser, Content: message}
		s.store.Append(conversationID, userTurn)
		turns = append(turns, userTurn)
	}

	resp, err := s.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:      s.model,
		Messages:   openai.MessagesFromTurns(turns),
		Tools:      []openai.Tool{booking.AppointmentTool()},
		ToolChoice: "auto",
	})
	if err != nil {
		s.logger.Error("chat completion failed", "conversation_id", conversationID, "error", err)
		reply := replyModelTrouble
		s.store.Append(conversationID, types.Turn{Role: types.RoleAssistant, Content: reply})
		return reply
	}

	reply := s.resolveReply(ctx, conversationID, resp)
	s.store.Append(conversationID, types.Turn{Role: types.RoleAssistant, Content: reply})
	return reply
}

func (s *Service) resolveReply(ctx context.Context, conversationID string, resp *openai.ChatResponse) string {
	for _, call := range resp.ToolCalls {
		if call.Function.Name != booking.ToolName {
			s.logger.Warn("model called unexpected tool", "conversation_id", conversationID, "tool", call.Function.Name)
			continue
		}
		var b types.Booking
		if err := json.Unmarshal([]byte(call.Function.Arguments), &b); err != nil {
			s.logger.Warn("invalid booking arguments", "conversation_id", conversationID, "error", err)
			return replyBookingFailed
		}
		if s.dispatcher == nil {
			s.logger.Warn("no booking dispatcher configured", "conversation_id", conversationID)
			return replyBookingFailed
		}
		if err := s.dispatcher.Dispatch(ctx, b); err != nil {
			s.logger.Warn("booking webhook delivery failed", "conversation_id", conversationID, "error", err)
			return replyBookingFailed
		}
		s.logger.Info("booking confirmed",
			"conversation_id", conversationID,
			"service", b.Service,
			"date", b.Date,
			"time", b.Time,
		)
		return bookedReply(b)
	}
	return resp.Content
}

// bookedReply renders the confirmation, with placeholders for anything the
// model left blank.
func bookedReply(b types.Booking) string {
	service := b.Service
	if service == "" {
		service = "your service"
	}
	date := b.Date
	if date == "" {
		date = "the selected date"
	}
	at := b.Time
	if at == "" {
		at = "the selected time"
	}
	return fmt.Sprintf("✅ Your appointment for %s on %s at %s is booked.", service, date, at)
}
