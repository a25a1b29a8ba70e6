package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// ErrMalformedFrame is wrapped by every decode failure
var ErrMalformedFrame = errors.New("malformed frame")

// wireFrame is the union of every inbound frame's fields
type wireFrame struct {
	Type      string          `json:"type"`
	Messages  []types.Message `json:"messages"`
	Content   *string         `json:"content"`
	ImageURL  string          `json:"image_url"`
	SessionID *int64          `json:"session_id"`
	ModelUsed string          `json:"model_used"`
	Message   string          `json:"message"`
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}

// Decode parses one inbound payload
func Decode(payload []byte) (Frame, error) {
	var w wireFrame
	if err := sonic.Unmarshal(payload, &w); err != nil {
		return nil, malformed("invalid json: %v", err)
	}

	switch w.Type {
	case TypeHistory:
		msgs := w.Messages
		if msgs == nil {
			msgs = []types.Message{}
		}
		return History{Messages: msgs}, nil
	case TypeDelta:
		if w.Content == nil {
			return nil, malformed("%s without content", w.Type)
		}
		return Delta{Text: *w.Content}, nil
	case TypeReasoningDelta:
		if w.Content == nil {
			return nil, malformed("%s without content", w.Type)
		}
		return ReasoningDelta{Text: *w.Content}, nil
	case TypeImage:
		if w.ImageURL == "" {
			return nil, malformed("image without image_url")
		}
		return Image{URL: w.ImageURL}, nil
	case TypeSessionCreated:
		if w.SessionID == nil {
			return nil, malformed("session_created without session_id")
		}
		return SessionAssigned{ID: types.ConversationID(*w.SessionID), ModelUsed: w.ModelUsed}, nil
	case TypeStreamEnd:
		return StreamEnd{}, nil
	case TypeError:
		return BackendError{Message: w.Message}, nil
	case "":
		return nil, malformed("missing type")
	default:
		return nil, malformed("unknown type %q", w.Type)
	}
}

// EncodeTranscript serializes the full ordered transcript as the outbound frame
func EncodeTranscript(msgs []types.Message) ([]byte, error) {
	data, err := sonic.Marshal(types.Transcript(msgs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	return data, nil
}

// Encode serializes an inbound frame in wire form. The development backend
// uses it to speak the protocol; the client only ever decodes.
func Encode(f Frame) ([]byte, error) {
	var v interface{}
	switch fr := f.(type) {
	case History:
		msgs := fr.Messages
		if msgs == nil {
			msgs = []types.Message{}
		}
		v = struct {
			Type     string          `json:"type"`
			Messages []types.Message `json:"messages"`
		}{TypeHistory, msgs}
	case Delta:
		v = contentFrame{TypeDelta, fr.Text}
	case ReasoningDelta:
		v = contentFrame{TypeReasoningDelta, fr.Text}
	case Image:
		v = struct {
			Type     string `json:"type"`
			ImageURL string `json:"image_url"`
		}{TypeImage, fr.URL}
	case SessionAssigned:
		v = struct {
			Type      string `json:"type"`
			SessionID int64  `json:"session_id"`
			ModelUsed string `json:"model_used,omitempty"`
		}{TypeSessionCreated, int64(fr.ID), fr.ModelUsed}
	case StreamEnd:
		v = struct {
			Type string `json:"type"`
		}{TypeStreamEnd}
	case BackendError:
		v = struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{TypeError, fr.Message}
	default:
		return nil, fmt.Errorf("cannot encode frame %T", f)
	}
	return sonic.Marshal(v)
}

type contentFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// DecodeTranscript parses an outbound transcript frame
func DecodeTranscript(payload []byte) ([]types.TranscriptEntry, error) {
	var entries []types.TranscriptEntry
	if err := sonic.Unmarshal(payload, &entries); err != nil {
		return nil, malformed("invalid transcript: %v", err)
	}
	return entries, nil
}
