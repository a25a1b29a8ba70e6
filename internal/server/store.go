package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Store keeps conversations in memory
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[types.ConversationID]*types.Conversation
}

// NewStore creates an empty store; ids start at 1
func NewStore() *Store {
	return &Store{sessions: make(map[types.ConversationID]*types.Conversation)}
}

// Create registers a new conversation
func (s *Store) Create(model string) types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := types.ConversationID(s.nextID)
	conv := &types.Conversation{
		ID:        &id,
		CreatedAt: types.Now(),
		ModelUsed: model,
		Messages:  []types.Message{},
	}
	s.sessions[id] = conv
	return cloneConversation(conv)
}

// Get returns a copy of a conversation
func (s *Store) Get(id types.ConversationID) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.sessions[id]
	if !ok {
		return types.Conversation{}, false
	}
	return cloneConversation(conv), true
}

// List returns summaries, newest first
func (s *Store) List() []types.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.SessionSummary, 0, len(s.sessions))
	for id, conv := range s.sessions {
		out = append(out, types.SessionSummary{ID: id, CreatedAt: conv.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].CreatedAt.After(out[j].CreatedAt.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Append adds messages to a conversation. Messages with no content,
// reasoning or images are not stored.
func (s *Store) Append(id types.ConversationID, msgs ...types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	for _, m := range msgs {
		if m.Content == "" && m.Reasoning == "" && len(m.Images) == 0 {
			continue
		}
		conv.Messages = append(conv.Messages, m.Clone())
	}
	return nil
}

// SetModel records the model used for a conversation's latest turn
func (s *Store) SetModel(id types.ConversationID, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.sessions[id]; ok {
		conv.ModelUsed = model
	}
}

func cloneConversation(c *types.Conversation) types.Conversation {
	out := *c
	if c.ID != nil {
		id := *c.ID
		out.ID = &id
	}
	out.Messages = types.CloneMessages(c.Messages)
	if out.Messages == nil {
		out.Messages = []types.Message{}
	}
	return out
}
