package session

import "github.com/GriffinCanCode/chatstream/internal/shared/types"

// Phase is the controller state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// View is what the presentation layer renders
type View struct {
	ActiveID *types.ConversationID
	Phase    Phase
	Loading  bool
	Messages []types.Message
}

// Observer receives controller output. Methods are called on the
// controller's loop goroutine and must not block.
type Observer interface {
	OnUpdate(view View)
	OnSessionCreated(summary types.SessionSummary)
	OnError(err error)
}

// NopObserver discards everything
type NopObserver struct{}

func (NopObserver) OnUpdate(View)                         {}
func (NopObserver) OnSessionCreated(types.SessionSummary) {}
func (NopObserver) OnError(error)                         {}
