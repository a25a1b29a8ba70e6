package protocol

import "github.com/GriffinCanCode/chatstream/internal/shared/types"

// Kind discriminates inbound frames
type Kind int

const (
	KindHistory Kind = iota
	KindDelta
	KindReasoningDelta
	KindImage
	KindSessionAssigned
	KindStreamEnd
	KindError
)

// Wire type tags
const (
	TypeHistory        = "chat_history"
	TypeDelta          = "chat_message"
	TypeReasoningDelta = "reasoning"
	TypeImage          = "image"
	TypeSessionCreated = "session_created"
	TypeStreamEnd      = "stream_end"
	TypeError          = "error"
)

// String returns the wire tag of the kind
func (k Kind) String() string {
	switch k {
	case KindHistory:
		return TypeHistory
	case KindDelta:
		return TypeDelta
	case KindReasoningDelta:
		return TypeReasoningDelta
	case KindImage:
		return TypeImage
	case KindSessionAssigned:
		return TypeSessionCreated
	case KindStreamEnd:
		return TypeStreamEnd
	case KindError:
		return TypeError
	default:
		return "unknown"
	}
}

// Frame is one decoded inbound frame
type Frame interface {
	Kind() Kind
}

// History replaces the whole message list
type History struct {
	Messages []types.Message
}

// Delta appends text to the current assistant turn's content
type Delta struct {
	Text string
}

// ReasoningDelta appends text to the current assistant turn's reasoning
type ReasoningDelta struct {
	Text string
}

// Image attaches an image reference to the current assistant turn
type Image struct {
	URL string
}

// SessionAssigned carries the id the backend gave a bootstrap conversation
type SessionAssigned struct {
	ID        types.ConversationID
	ModelUsed string
}

// StreamEnd marks completion of the current assistant turn
type StreamEnd struct{}

// BackendError is a failure reported by the backend. The transport stays open.
type BackendError struct {
	Message string
}

func (History) Kind() Kind         { return KindHistory }
func (Delta) Kind() Kind           { return KindDelta }
func (ReasoningDelta) Kind() Kind  { return KindReasoningDelta }
func (Image) Kind() Kind           { return KindImage }
func (SessionAssigned) Kind() Kind { return KindSessionAssigned }
func (StreamEnd) Kind() Kind       { return KindStreamEnd }
func (BackendError) Kind() Kind    { return KindError }
