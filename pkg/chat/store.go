package chat

import (
	"container/list"
	"sync"

	"github.com/frontdeskhq/frontdesk/pkg/core/types"
)

const defaultMaxConversations = 256

// Store keeps per-conversation histories in memory with LRU eviction, so an
// abandoned browser tab cannot pin its history forever.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recently used
	convs    map[string]*list.Element
}

type conversation struct {
	id    string
	turns []types.Turn
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultMaxConversations
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		convs:    make(map[string]*list.Element),
	}
}

// History returns a copy of the conversation's turns and marks it recently
// used. A nil slice means the conversation is unknown.
func (s *Store) History(id string) []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.convs[id]
	if !ok {
		return nil
	}
	s.order.MoveToFront(elem)
	conv := elem.Value.(*conversation)
	out := make([]types.Turn, len(conv.turns))
	copy(out, conv.turns)
	return out
}

// Append adds turns to the conversation, creating it if needed, and evicts
// the least recently used conversation beyond capacity.
func (s *Store) Append(id string, turns ...types.Turn) {
	if len(turns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.convs[id]
	if !ok {
		elem = s.order.PushFront(&conversation{id: id})
		s.convs[id] = elem
	} else {
		s.order.MoveToFront(elem)
	}
	conv := elem.Value.(*conversation)
	conv.turns = append(conv.turns, turns...)

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.convs, oldest.Value.(*conversation).id)
	}
}

// Len reports the number of conversations currently retained.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
