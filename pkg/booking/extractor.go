package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frontdeskhq/frontdesk/pkg/core"
	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

// DefaultExtractionModel is the chat model used to mine bookings out of
// voice transcripts.
const DefaultExtractionModel = "gpt-4o-mini"

// Extractor replays a conversation through the chat model with the booking
// tool attached. A tool call means the conversation contains a complete
// booking; anything else means not yet.
type Extractor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewExtractor(client *openai.Client, model string, logger *slog.Logger) *Extractor {
	if model == "" {
		model = DefaultExtractionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, model: model, logger: logger}
}

// Extract returns the booking the model committed to, or nil when the
// conversation does not contain one yet.
func (e *Extractor) Extract(ctx context.Context, turns []types.Turn) (*types.Booking, error) {
	if len(turns) == 0 {
		return nil, nil
	}

	resp, err := e.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:      e.model,
		Messages:   openai.MessagesFromTurns(turns),
		Tools:      []openai.Tool{AppointmentTool()},
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, core.NewExtractionError(err)
	}

	for _, call := range resp.ToolCalls {
		if call.Function.Name != ToolName {
			e.logger.Warn("model called unexpected tool", "tool", call.Function.Name)
			continue
		}
		var b types.Booking
		if err := json.Unmarshal([]byte(call.Function.Arguments), &b); err != nil {
			return nil, core.NewExtractionError(fmt.Errorf("decode %s arguments: %w", ToolName, err))
		}
		return &b, nil
	}
	return nil, nil
}
