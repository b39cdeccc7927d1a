// Package apierror maps relay errors onto the JSON error envelope the
// HTTP surface speaks.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
)

type Envelope struct {
	Error *Object `json:"error"`
}

// Object is the wire shape of one error.
type Object struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// FromError converts err into a wire error and the HTTP status to send it
// with. Unknown errors are masked as a generic internal error so internal
// detail never leaks to callers.
func FromError(err error, requestID string) (*Object, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Object{
			Type:      string(core.ErrAPI),
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &Object{
			Type:      string(core.ErrAPI),
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		return &Object{
			Type:      string(coreErr.Type),
			Message:   coreErr.Message,
			Code:      coreErr.Code,
			RequestID: requestID,
		}, statusFromType(coreErr.Type)
	}

	// Upstream REST errors are never the caller's fault.
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) && openaiErr != nil {
		return &Object{
			Type:      string(core.ErrAPI),
			Message:   "upstream api error",
			Code:      openaiErr.Code,
			RequestID: requestID,
		}, http.StatusBadGateway
	}

	return &Object{
		Type:      string(core.ErrAPI),
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrHandshakeRejected, core.ErrTransportClosed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write sends obj as the canonical envelope.
func Write(w http.ResponseWriter, status int, obj *Object) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: obj})
}
