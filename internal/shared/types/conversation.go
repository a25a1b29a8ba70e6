package types

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// ConversationID is the backend-assigned identifier of a conversation
type ConversationID int64

// String returns the decimal form used in URLs and logs
func (id ConversationID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseConversationID parses the decimal form of an id
func ParseConversationID(s string) (ConversationID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid conversation id %q: %w", s, err)
	}
	return ConversationID(n), nil
}

// Conversation is a chat session. ID is nil until the backend assigns one.
type Conversation struct {
	ID        *ConversationID `json:"id"`
	CreatedAt Timestamp       `json:"created_at"`
	ModelUsed string          `json:"model_used,omitempty"`
	Messages  []Message       `json:"messages"`
}

// Assigned reports whether the backend has acknowledged the conversation
func (c *Conversation) Assigned() bool {
	return c.ID != nil
}

// SessionSummary is one entry of the conversation list
type SessionSummary struct {
	ID        ConversationID `json:"id"`
	CreatedAt Timestamp      `json:"created_at"`
}

// Timestamp accepts RFC 3339 as well as zone-less ISO 8601 values, which
// the backend emits for naive datetimes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Now returns the current time as a Timestamp
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// MarshalJSON writes the time in RFC 3339 form, or null when zero
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339Nano))), nil
}

// UnmarshalJSON parses any of the accepted layouts; null leaves t zero
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
