package ws

import (
	"strings"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Target selects what a connection is bound to
type Target struct {
	id         *types.ConversationID
	transcript []types.Message
}

// ExistingSession targets a conversation the backend already knows
func ExistingSession(id types.ConversationID) Target {
	return Target{id: &id}
}

// NewSession targets a conversation the backend has yet to create. The
// transcript is written as soon as the transport opens.
func NewSession(transcript []types.Message) Target {
	return Target{transcript: types.CloneMessages(transcript)}
}

// IsBootstrap reports whether the target awaits an id from the backend
func (t Target) IsBootstrap() bool {
	return t.id == nil
}

// ID returns the conversation id of an existing-session target
func (t Target) ID() (types.ConversationID, bool) {
	if t.id == nil {
		return 0, false
	}
	return *t.id, true
}

// Transcript returns the bootstrap transcript
func (t Target) Transcript() []types.Message {
	return types.CloneMessages(t.transcript)
}

func (t Target) label() string {
	if t.IsBootstrap() {
		return "new"
	}
	return "existing"
}

// URL resolves the endpoint for this target under base
func (t Target) URL(base string) string {
	base = strings.TrimRight(base, "/")
	if t.id == nil {
		return base + "/new"
	}
	return base + "/" + t.id.String()
}
