// Package protocol defines the JSON messages the voice gateway sends to
// browser clients. Audio travels as raw binary frames and is not part of
// this package.
package protocol

// Message type tags.
const (
	TypeTranscript     = "transcript"
	TypeUserTranscript = "user_transcript"
	TypeResponseEnd    = "response_end"
	TypeError          = "error"
)

// Transcript carries an incremental piece of the assistant's spoken reply.
type Transcript struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserTranscript carries the completed transcription of a caller utterance.
type UserTranscript struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ResponseEnd marks the end of one assistant response.
type ResponseEnd struct {
	Type string `json:"type"`
}

// ServerError reports a session-level failure to the client.
type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewTranscript(text string) Transcript {
	return Transcript{Type: TypeTranscript, Text: text}
}

func NewUserTranscript(text string) UserTranscript {
	return UserTranscript{Type: TypeUserTranscript, Text: text}
}

func NewResponseEnd() ResponseEnd {
	return ResponseEnd{Type: TypeResponseEnd}
}

func NewServerError(message string) ServerError {
	return ServerError{Type: TypeError, Message: message}
}
