// Package types holds the small data shapes shared across the relay:
// conversation turns and the structured booking record.
package types

// Role identifies the speaker a logged turn is attributed to.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a session's conversation log.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Booking is the structured appointment record the extraction tool pulls
// out of a conversation. The tool schema marks every field required, but
// model output is not trusted: absent values arrive as empty strings.
type Booking struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}
