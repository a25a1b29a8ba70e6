package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/chatstream/internal/infrastructure/config"
	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{Config: config.DevBackendConfig{DefaultModel: "google/gemini-2.0-flash-001"}})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSessionRoutes(t *testing.T) {
	s, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/api/sessions")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)

	conv := s.Store().Create("openai/gpt-5")
	require.NoError(t, s.Store().Append(*conv.ID,
		types.Message{Role: types.RoleUser, Content: "hi"},
		types.Message{Role: types.RoleAssistant},
	))

	status, body = get(t, ts.URL+"/api/sessions/1")
	require.Equal(t, http.StatusOK, status)
	var got types.Conversation
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "openai/gpt-5", got.ModelUsed)
	assert.Equal(t, []types.Message{{Role: types.RoleUser, Content: "hi"}}, got.Messages)

	tests := []struct {
		path   string
		status int
		detail string
	}{
		{"/api/sessions/99", http.StatusNotFound, "Session not found"},
		{"/api/sessions/abc", http.StatusUnprocessableEntity, "invalid conversation id"},
	}
	for _, tt := range tests {
		status, body := get(t, ts.URL+tt.path)
		assert.Equal(t, tt.status, status, tt.path)
		assert.Contains(t, body, tt.detail)
	}
}

func TestModelRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/api/models")
	require.Equal(t, http.StatusOK, status)
	var catalog types.ModelCatalog
	require.NoError(t, json.Unmarshal([]byte(body), &catalog))
	assert.Equal(t, "google/gemini-2.0-flash-001", catalog.CurrentModel)
	assert.Len(t, catalog.AvailableModels, len(DefaultModels))

	resp, err := http.Post(ts.URL+"/api/models/select/openai/gpt-5", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = get(t, ts.URL+"/api/models")
	assert.Contains(t, body, `"current_model":"openai/gpt-5"`)

	resp, err = http.Post(ts.URL+"/api/models/select/nope", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "running")

	status, _ = get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "devbackend_http_requests_total")
}

func dialStream(t *testing.T, ts *httptest.Server, target string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat/" + target
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := protocol.Decode(data)
	require.NoError(t, err)
	return f
}

func sendTranscript(t *testing.T, conn *websocket.Conn, msgs ...types.Message) {
	t.Helper()
	payload, err := protocol.EncodeTranscript(msgs)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// readTurn collects frames up to and including stream_end
func readTurn(t *testing.T, conn *websocket.Conn) []protocol.Frame {
	t.Helper()
	var frames []protocol.Frame
	for {
		f := readFrame(t, conn)
		frames = append(frames, f)
		if f.Kind() == protocol.KindStreamEnd {
			return frames
		}
	}
}

func TestStreamNewConversation(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialStream(t, ts, "new")

	assigned, ok := readFrame(t, conn).(protocol.SessionAssigned)
	require.True(t, ok)
	assert.Equal(t, types.ConversationID(1), assigned.ID)
	assert.Equal(t, "google/gemini-2.0-flash-001", assigned.ModelUsed)

	sendTranscript(t, conn, types.Message{Role: types.RoleUser, Content: "hi there"})
	frames := readTurn(t, conn)

	var text strings.Builder
	for _, f := range frames {
		if d, ok := f.(protocol.Delta); ok {
			text.WriteString(d.Text)
		}
	}
	assert.Equal(t, "You said: hi there", text.String())

	conv, ok := s.Store().Get(1)
	require.True(t, ok)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "You said: hi there", conv.Messages[1].Content)
}

func TestStreamExistingConversation(t *testing.T) {
	s, ts := newTestServer(t)
	conv := s.Store().Create("m")
	require.NoError(t, s.Store().Append(*conv.ID, types.Message{Role: types.RoleUser, Content: "earlier"}))

	conn := dialStream(t, ts, conv.ID.String())
	history, ok := readFrame(t, conn).(protocol.History)
	require.True(t, ok)
	assert.Equal(t, []types.Message{{Role: types.RoleUser, Content: "earlier"}}, history.Messages)
}

func TestStreamUnknownConversation(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialStream(t, ts, "42")

	berr, ok := readFrame(t, conn).(protocol.BackendError)
	require.True(t, ok)
	assert.Equal(t, "Session not found", berr.Message)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestStreamModelVariants(t *testing.T) {
	tests := []struct {
		model     string
		reasoning bool
		image     bool
	}{
		{"openai/gpt-5", true, false},
		{"google/gemini-2.5-flash-image-preview", false, true},
		{"qwen/qwen3-coder", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			s, ts := newTestServer(t)
			_, ok := s.Catalog().Select(tt.model)
			require.True(t, ok)

			conn := dialStream(t, ts, "new")
			readFrame(t, conn)
			sendTranscript(t, conn, types.Message{Role: types.RoleUser, Content: "q"})

			var sawReasoning, sawImage bool
			for _, f := range readTurn(t, conn) {
				switch f.(type) {
				case protocol.ReasoningDelta:
					sawReasoning = true
				case protocol.Image:
					sawImage = true
				}
			}
			assert.Equal(t, tt.reasoning, sawReasoning)
			assert.Equal(t, tt.image, sawImage)

			conv, _ := s.Store().Get(1)
			assert.Equal(t, tt.model, conv.ModelUsed)
		})
	}
}

func TestStreamErrorTurn(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialStream(t, ts, "new")
	readFrame(t, conn)

	sendTranscript(t, conn, types.Message{Role: types.RoleUser, Content: ErrorTrigger + " now"})
	frames := readTurn(t, conn)
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.KindError, frames[0].Kind())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not a transcript")))
	frames = readTurn(t, conn)
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.KindError, frames[0].Kind())
}

func TestStoreOrderingAndFiltering(t *testing.T) {
	store := NewStore()
	a := store.Create("m")
	b := store.Create("m")

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, *b.ID, list[0].ID)
	assert.Equal(t, *a.ID, list[1].ID)

	require.NoError(t, store.Append(*a.ID, types.Message{Role: types.RoleAssistant}))
	conv, _ := store.Get(*a.ID)
	assert.Empty(t, conv.Messages)
	assert.Error(t, store.Append(99, types.Message{Content: "x"}))

	// copies do not alias the store
	conv.Messages = append(conv.Messages, types.Message{Content: "y"})
	again, _ := store.Get(*a.ID)
	assert.Empty(t, again.Messages)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(DefaultModels, "missing")
	assert.Equal(t, DefaultModels[0].ID, c.Current().ID)

	m, ok := c.Lookup("openai/gpt-5")
	require.True(t, ok)
	assert.True(t, m.Reasoning)
	assert.Equal(t, 32000, m.MaxTokens)

	_, ok = c.Select("nope")
	assert.False(t, ok)
	assert.Equal(t, "OpenAI GPT-5", c.Snapshot().AvailableModels["openai/gpt-5"])
}

func TestWords(t *testing.T) {
	for _, s := range []string{"", "one", "You said: hi there", "  spaced  out "} {
		assert.Equal(t, s, strings.Join(words(s), ""))
	}
	assert.Equal(t, []string{"a", " b", " c"}, words("a b c"))
}
