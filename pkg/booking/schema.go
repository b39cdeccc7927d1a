// Package booking turns finished conversations into appointment bookings:
// an extractor asks the chat model to fill the booking tool, and a
// dispatcher delivers confirmed bookings to the configured webhook.
package booking

import (
	"encoding/json"

	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
)

// ToolName is the function the model calls once every booking detail has
// been collected.
const ToolName = "book_appointment"

var appointmentParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "Full name of the person."},
		"email": {"type": "string", "description": "Email address."},
		"phone": {"type": "string", "description": "Phone number."},
		"service": {"type": "string", "description": "The service they want to book."},
		"date": {"type": "string", "description": "The date of the appointment, e.g., YYYY-MM-DD."},
		"time": {"type": "string", "description": "The time of the appointment, e.g., HH:MM."}
	},
	"required": ["name", "email", "phone", "service", "date", "time"]
}`)

// AppointmentTool returns the booking tool definition offered to the model.
func AppointmentTool() openai.Tool {
	return openai.Tool{
		Type: "function",
		Function: openai.ToolFunction{
			Name:        ToolName,
			Description: "Book an appointment after collecting all the necessary details.",
			Parameters:  appointmentParameters,
		},
	}
}
