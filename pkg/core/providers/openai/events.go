package openai

import (
	"encoding/base64"
	"encoding/json"

	"github.com/frontdeskhq/frontdesk/pkg/core"
)

// Wire tags consumed from the realtime stream.
const (
	eventAudioDelta      = "response.audio.delta"
	eventTranscriptDelta = "response.audio_transcript.delta"
	eventUserTranscript  = "conversation.item.input_audio_transcription.completed"
	eventResponseDone    = "response.done"
	eventError           = "error"
)

// RealtimeEvent is one decoded upstream event. The set is closed: every
// inbound payload decodes to exactly one variant, with UnknownEvent as
// the explicit arm for tags the relay does not consume.
type RealtimeEvent interface {
	// EventType returns the upstream wire tag.
	EventType() string
}

// AudioDeltaEvent carries one chunk of assistant PCM audio, already
// base64-decoded.
type AudioDeltaEvent struct {
	Audio []byte
}

func (*AudioDeltaEvent) EventType() string { return eventAudioDelta }

// TranscriptDeltaEvent is an incremental fragment of the assistant's
// spoken transcript.
type TranscriptDeltaEvent struct {
	Text string
}

func (*TranscriptDeltaEvent) EventType() string { return eventTranscriptDelta }

// UserTranscriptEvent is the completed transcription of one user
// utterance. Text may be empty when transcription produced nothing.
type UserTranscriptEvent struct {
	Text string
}

func (*UserTranscriptEvent) EventType() string { return eventUserTranscript }

// ResponseDoneEvent marks the end of one assistant response.
type ResponseDoneEvent struct{}

func (*ResponseDoneEvent) EventType() string { return eventResponseDone }

// ErrorEvent is a structured error the upstream reports inside the
// stream. Receiving one does not end the session.
type ErrorEvent struct {
	Code    string
	Message string
}

func (*ErrorEvent) EventType() string { return eventError }

// UnknownEvent preserves events the relay does not consume.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e *UnknownEvent) EventType() string { return e.Type }

func decodeRealtimeEvent(data []byte) (RealtimeEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.NewMalformedEventError("", err)
	}

	switch envelope.Type {
	case eventAudioDelta:
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, core.NewMalformedEventError(envelope.Type, err)
		}
		pcm, err := base64.StdEncoding.DecodeString(payload.Delta)
		if err != nil {
			return nil, core.NewMalformedEventError(envelope.Type, err)
		}
		return &AudioDeltaEvent{Audio: pcm}, nil

	case eventTranscriptDelta:
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, core.NewMalformedEventError(envelope.Type, err)
		}
		return &TranscriptDeltaEvent{Text: payload.Delta}, nil

	case eventUserTranscript:
		var payload struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, core.NewMalformedEventError(envelope.Type, err)
		}
		return &UserTranscriptEvent{Text: payload.Transcript}, nil

	case eventResponseDone:
		return &ResponseDoneEvent{}, nil

	case eventError:
		var payload struct {
			Error struct {
				Type    string `json:"type"`
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, core.NewMalformedEventError(envelope.Type, err)
		}
		message := payload.Error.Message
		if message == "" {
			message = "Unknown error"
		}
		return &ErrorEvent{Code: payload.Error.Code, Message: message}, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &UnknownEvent{Type: envelope.Type, Raw: raw}, nil
	}
}
