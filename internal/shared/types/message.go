package types

// Role identifies who produced a message. Values other than the predefined
// constants are carried through untouched.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents one conversational turn or partial turn
type Message struct {
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Reasoning string   `json:"reasoning,omitempty"`
	Images    []string `json:"images,omitempty"`
}

// IsAssistant reports whether the message was produced by the assistant
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasImage reports whether url is already attached to the message
func (m Message) HasImage(url string) bool {
	for _, img := range m.Images {
		if img == url {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the message
func (m Message) Clone() Message {
	if m.Images != nil {
		m.Images = append([]string(nil), m.Images...)
	}
	return m
}

// CloneMessages returns a deep copy of msgs. A nil slice stays nil.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// TranscriptEntry is the outbound shape of a message: role and content only
type TranscriptEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript projects msgs onto their outbound form
func Transcript(msgs []Message) []TranscriptEntry {
	out := make([]TranscriptEntry, len(msgs))
	for i, m := range msgs {
		out[i] = TranscriptEntry{Role: m.Role, Content: m.Content}
	}
	return out
}
