package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/frontdeskhq/frontdesk/pkg/chat"
)

// ChatHandler handles POST /chat: one user message in, one assistant reply
// out, with history threaded by conversation id.
type ChatHandler struct {
	Service      *chat.Service
	MaxBodyBytes int64
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	var req chatRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorJSON(w, r, http.StatusRequestEntityTooLarge, "request body too large", "body_too_large")
			return
		}
		writeErrorJSON(w, r, http.StatusBadRequest, "invalid request body", "invalid_json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErrorJSON(w, r, http.StatusBadRequest, "message is required", "missing_message")
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = "c_" + randHex(8)
	}

	reply := h.Service.Reply(r.Context(), conversationID, req.Message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(chatResponse{
		Reply:          reply,
		ConversationID: conversationID,
	})
}
