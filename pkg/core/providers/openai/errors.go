package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorType mirrors the error type strings the REST API returns.
type ErrorType string

const (
	ErrTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrTypeAuthentication ErrorType = "authentication_error"
	ErrTypePermission     ErrorType = "permission_error"
	ErrTypeNotFound       ErrorType = "not_found_error"
	ErrTypeRateLimit      ErrorType = "rate_limit_error"
	ErrTypeServer         ErrorType = "server_error"
)

// Error is a structured error from the REST API.
type Error struct {
	Type       ErrorType
	Message    string
	Param      string
	Code       string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: %s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("openai: %s: %s", e.Type, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   string `json:"param"`
		Code    string `json:"code"`
	} `json:"error"`
}

// parseError converts a non-2xx REST response into an *Error. Bodies that
// do not match the documented envelope become a server_error carrying the
// raw body text.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:       ErrTypeServer,
			Message:    fmt.Sprintf("read error response: %v", err),
			StatusCode: resp.StatusCode,
		}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &Error{
			Type:       typeFromStatus(resp.StatusCode),
			Message:    strings.TrimSpace(string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	errType := ErrorType(envelope.Error.Type)
	switch errType {
	case ErrTypeInvalidRequest, ErrTypeAuthentication, ErrTypePermission,
		ErrTypeNotFound, ErrTypeRateLimit, ErrTypeServer:
	default:
		errType = typeFromStatus(resp.StatusCode)
	}

	return &Error{
		Type:       errType,
		Message:    envelope.Error.Message,
		Param:      envelope.Error.Param,
		Code:       envelope.Error.Code,
		StatusCode: resp.StatusCode,
	}
}

func typeFromStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrTypeAuthentication
	case status == http.StatusForbidden:
		return ErrTypePermission
	case status == http.StatusNotFound:
		return ErrTypeNotFound
	case status == http.StatusTooManyRequests:
		return ErrTypeRateLimit
	case status >= 500:
		return ErrTypeServer
	default:
		return ErrTypeInvalidRequest
	}
}
