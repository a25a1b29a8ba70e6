// Package assembler folds streamed frames into an ordered list of
// conversation messages.
//
// Frames carry no turn index. The sole correlation rule is: a delta, a
// reasoning delta or an image belongs to the last message if that message is
// an assistant message, otherwise it starts a new assistant message. This is
// sound because a connection streams at most one assistant turn at a time.
//
// In-progress text lives in growable buffers so long replies built from many
// small deltas do not re-copy the accumulated text on every append.
// Snapshot hands out immutable copies.
//
// An Assembler is not safe for concurrent use; its owner serializes access.
package assembler

import (
	"strings"

	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// entry is the mutable form of a message
type entry struct {
	role      types.Role
	content   strings.Builder
	reasoning strings.Builder
	images    []string
}

func newEntry(m types.Message) *entry {
	e := &entry{role: m.Role}
	e.content.WriteString(m.Content)
	e.reasoning.WriteString(m.Reasoning)
	if m.Images != nil {
		e.images = append([]string(nil), m.Images...)
	}
	return e
}

func (e *entry) hasImage(url string) bool {
	for _, img := range e.images {
		if img == url {
			return true
		}
	}
	return false
}

func (e *entry) message() types.Message {
	m := types.Message{
		Role:      e.role,
		Content:   e.content.String(),
		Reasoning: e.reasoning.String(),
	}
	if e.images != nil {
		m.Images = append([]string(nil), e.images...)
	}
	return m
}

// Assembler owns one conversation's message list
type Assembler struct {
	entries []*entry
}

// New creates an assembler seeded with msgs
func New(msgs ...types.Message) *Assembler {
	a := &Assembler{}
	a.Replace(msgs)
	return a
}

// Apply folds one frame into the list and reports whether the list changed.
// StreamEnd, SessionAssigned and BackendError never mutate the list.
func (a *Assembler) Apply(f protocol.Frame) bool {
	switch fr := f.(type) {
	case protocol.History:
		a.Replace(fr.Messages)
		return true
	case protocol.Delta:
		a.current().content.WriteString(fr.Text)
		return true
	case protocol.ReasoningDelta:
		a.current().reasoning.WriteString(fr.Text)
		return true
	case protocol.Image:
		e := a.current()
		if e.hasImage(fr.URL) {
			return false
		}
		e.images = append(e.images, fr.URL)
		return true
	default:
		return false
	}
}

// current returns the assistant message being accumulated, starting one
// when the last message belongs to someone else.
func (a *Assembler) current() *entry {
	if n := len(a.entries); n > 0 && a.entries[n-1].role == types.RoleAssistant {
		return a.entries[n-1]
	}
	e := &entry{role: types.RoleAssistant}
	a.entries = append(a.entries, e)
	return e
}

// Replace discards the list and installs msgs
func (a *Assembler) Replace(msgs []types.Message) {
	a.entries = make([]*entry, 0, len(msgs))
	for _, m := range msgs {
		a.entries = append(a.entries, newEntry(m))
	}
}

// AppendUser pushes a user turn
func (a *Assembler) AppendUser(text string) {
	a.entries = append(a.entries, newEntry(types.Message{Role: types.RoleUser, Content: text}))
}

// AppendPlaceholder pushes an empty assistant turn that later deltas fill in
func (a *Assembler) AppendPlaceholder() {
	a.entries = append(a.entries, &entry{role: types.RoleAssistant})
}

// Reset empties the list
func (a *Assembler) Reset() {
	a.entries = nil
}

// Len returns the number of messages
func (a *Assembler) Len() int {
	return len(a.entries)
}

// Snapshot returns an immutable copy of the list
func (a *Assembler) Snapshot() []types.Message {
	out := make([]types.Message, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.message()
	}
	return out
}
