package session

import (
	"strings"
	"sync"

	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

// conversationLog accumulates the turns of one voice session. Assistant
// speech arrives as transcript deltas, so it is buffered and only becomes a
// turn when the response completes.
type conversationLog struct {
	mu      sync.Mutex
	turns   []types.Turn
	pending strings.Builder
}

func newConversationLog(instructions string) *conversationLog {
	l := &conversationLog{}
	if strings.TrimSpace(instructions) != "" {
		l.turns = append(l.turns, types.Turn{Role: types.RoleSystem, Content: instructions})
	}
	return l
}

func (l *conversationLog) appendUser(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, types.Turn{Role: types.RoleUser, Content: text})
}

func (l *conversationLog) appendAssistantDelta(text string) {
	if text == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending.WriteString(text)
}

// flushAssistant commits the buffered assistant speech as a single turn.
// Returns false when nothing was buffered.
func (l *conversationLog) flushAssistant() (types.Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending.Len() == 0 {
		return types.Turn{}, false
	}
	turn := types.Turn{Role: types.RoleAssistant, Content: l.pending.String()}
	l.pending.Reset()
	l.turns = append(l.turns, turn)
	return turn, true
}

func (l *conversationLog) snapshot() []types.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}
