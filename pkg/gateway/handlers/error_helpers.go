package handlers

import (
	"context"
	"net/http"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/apierror"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/mw"
)

func requestIDFromContext(ctx context.Context) (string, bool) {
	return mw.RequestIDFrom(ctx)
}

// writeErrorJSON sends one canonical error envelope with an explicit status.
func writeErrorJSON(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	reqID, _ := requestIDFromContext(r.Context())
	errType := core.ErrAPI
	if status >= 400 && status < 500 {
		errType = core.ErrInvalidRequest
	}
	apierror.Write(w, status, &apierror.Object{
		Type:      string(errType),
		Message:   message,
		Code:      code,
		RequestID: reqID,
	})
}
