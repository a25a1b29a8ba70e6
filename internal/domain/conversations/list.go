// Package conversations keeps the ordered list of known conversations and
// the current selection.
package conversations

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Source loads the conversation list
type Source interface {
	ListSessions(ctx context.Context) ([]types.SessionSummary, error)
}

// List is safe for concurrent use
type List struct {
	mu       sync.RWMutex
	items    []types.SessionSummary
	selected *types.ConversationID
}

// New creates an empty list
func New() *List {
	return &List{}
}

// Load replaces the list with the source's contents. The selection is kept
// if it is still present.
func (l *List) Load(ctx context.Context, src Source) error {
	items, err := src.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]types.SessionSummary(nil), items...)
	if l.selected != nil && l.indexLocked(*l.selected) < 0 {
		l.selected = nil
	}
	return nil
}

// Prepend adds a newly created conversation at the top and selects it. An
// id already present is moved rather than duplicated.
func (l *List) Prepend(s types.SessionSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexLocked(s.ID); i >= 0 {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}
	l.items = append([]types.SessionSummary{s}, l.items...)
	id := s.ID
	l.selected = &id
}

// Select marks id as selected. It returns false if id is unknown.
func (l *List) Select(id types.ConversationID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(id) < 0 {
		return false
	}
	l.selected = &id
	return true
}

// Clear drops the selection
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = nil
}

// Selected returns the selected id, if any
func (l *List) Selected() (types.ConversationID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.selected == nil {
		return 0, false
	}
	return *l.selected, true
}

// Items returns a copy of the list
func (l *List) Items() []types.SessionSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.SessionSummary{}, l.items...)
}

// At returns the entry at a 1-based position, as shown to users
func (l *List) At(pos int) (types.SessionSummary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos < 1 || pos > len(l.items) {
		return types.SessionSummary{}, false
	}
	return l.items[pos-1], true
}

func (l *List) indexLocked(id types.ConversationID) int {
	for i, s := range l.items {
		if s.ID == id {
			return i
		}
	}
	return -1
}
