package core

import (
	"errors"
	"fmt"
)

// ErrorType classifies relay errors by their propagation policy. Fatal
// kinds tear the session down; every other kind is contained at the
// component that produced it and surfaces only as a log line.
type ErrorType string

const (
	// ErrInvalidRequest covers malformed input on the HTTP surface.
	ErrInvalidRequest ErrorType = "invalid_request_error"

	// ErrAPI is an internal failure reported to HTTP callers.
	ErrAPI ErrorType = "api_error"

	// ErrHandshakeRejected means the upstream refused the websocket
	// handshake. Fatal: the session never reaches the relay loops.
	ErrHandshakeRejected ErrorType = "handshake_rejected"

	// ErrTransportClosed means one of the two sockets dropped mid-session.
	// Fatal: the other side is torn down promptly.
	ErrTransportClosed ErrorType = "transport_closed"

	// ErrMalformedEvent is an upstream payload that failed to decode.
	// Logged and dropped, never fatal.
	ErrMalformedEvent ErrorType = "malformed_upstream_event"

	// ErrExtraction is a failed booking-extraction call. Extraction is
	// advisory; the failure reads as "no extraction this turn".
	ErrExtraction ErrorType = "extraction_failure"

	// ErrWebhook is a failed booking webhook delivery. Never retried and
	// never client-visible.
	ErrWebhook ErrorType = "webhook_failure"
)

// Error is the structured error shared across the relay.
type Error struct {
	Type    ErrorType
	Message string

	// Status carries the upstream HTTP status for handshake rejections and
	// the response status for webhook delivery failures. Zero otherwise.
	Status int

	// Code is an optional machine-readable detail from a collaborator.
	Code string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Type, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInvalidRequestError reports malformed caller input.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewAPIError reports an internal failure to an HTTP caller.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}

// NewHandshakeRejectedError records an upstream handshake refusal with the
// HTTP status it answered with.
func NewHandshakeRejectedError(status int, reason string) *Error {
	if reason == "" {
		reason = "upstream rejected websocket handshake"
	}
	return &Error{Type: ErrHandshakeRejected, Message: reason, Status: status}
}

// NewTransportClosedError records a dropped socket. side names which one
// ("client" or "upstream").
func NewTransportClosedError(side string, cause error) *Error {
	return &Error{Type: ErrTransportClosed, Message: side + " transport closed", Cause: cause}
}

// NewMalformedEventError records an upstream payload that failed to
// decode. eventType is the wire tag when the envelope was readable.
func NewMalformedEventError(eventType string, cause error) *Error {
	message := "undecodable upstream event"
	if eventType != "" {
		message = "undecodable " + eventType + " event"
	}
	return &Error{Type: ErrMalformedEvent, Message: message, Cause: cause}
}

// NewExtractionError wraps a failed booking-extraction call.
func NewExtractionError(cause error) *Error {
	return &Error{Type: ErrExtraction, Message: "booking extraction failed", Cause: cause}
}

// NewWebhookError records a failed webhook delivery. status is the HTTP
// response status when one was received.
func NewWebhookError(message string, status int) *Error {
	return &Error{Type: ErrWebhook, Message: message, Status: status}
}

// IsFatal reports whether err must end the live session. Only handshake
// and transport failures qualify.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == ErrHandshakeRejected || e.Type == ErrTransportClosed
}
