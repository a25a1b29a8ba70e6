package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/chatstream/internal/domain/session"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
	"github.com/GriffinCanCode/chatstream/internal/testutil"
	"github.com/GriffinCanCode/chatstream/internal/ws"
)

const base = "ws://backend/ws/chat"

type recordingObserver struct {
	mu      sync.Mutex
	views   []session.View
	created []types.SessionSummary
	errs    []error
}

func (o *recordingObserver) OnUpdate(v session.View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = append(o.views, v)
}

func (o *recordingObserver) OnSessionCreated(s types.SessionSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, s)
}

func (o *recordingObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

func (o *recordingObserver) sessions() []types.SessionSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.SessionSummary(nil), o.created...)
}

func (o *recordingObserver) waitError(t *testing.T, target error) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, err := range o.errors() {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no error matching %v", target)
}

type harness struct {
	ctrl     *session.Controller
	dialer   *testutil.FakeDialer
	observer *recordingObserver
	metrics  *monitoring.Metrics
}

func newHarness(t *testing.T, history session.HistoryFetcher) *harness {
	t.Helper()
	h := &harness{
		dialer:   testutil.NewFakeDialer(),
		observer: &recordingObserver{},
		metrics:  monitoring.NewMetrics(),
	}
	h.ctrl = session.NewController(session.Options{
		BaseURL:  base,
		Dialer:   h.dialer,
		History:  history,
		Observer: h.observer,
		Metrics:  h.metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) view(t *testing.T) session.View {
	t.Helper()
	v, err := h.ctrl.Snapshot(context.Background())
	require.NoError(t, err)
	return v
}

func (h *harness) waitView(t *testing.T, cond func(session.View) bool) session.View {
	t.Helper()
	var v session.View
	require.Eventually(t, func() bool {
		v = h.view(t)
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return v
}

func (h *harness) waitOpen(t *testing.T) {
	t.Helper()
	h.waitView(t, func(v session.View) bool { return v.Phase == session.PhaseOpen })
}

func urlFor(id int) string {
	return base + "/" + types.ConversationID(id).String()
}

func TestRepeatedSelectionKeepsOneConnection(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(3)
	h.ctrl.SelectConversation(3)
	h.waitOpen(t)
	h.ctrl.SelectConversation(3)

	v := h.view(t)
	require.NotNil(t, v.ActiveID)
	assert.Equal(t, types.ConversationID(3), *v.ActiveID)
	assert.Equal(t, 1, h.dialer.DialCount(urlFor(3)))
	assert.False(t, h.dialer.Transport(urlFor(3)).IsClosed())
}

func TestBootstrapAssignsIDOnSameConnection(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.Submit("hello")
	transport := h.dialer.WaitTransport(t, base+"/new")
	h.waitOpen(t)

	require.Equal(t, [][]types.TranscriptEntry{{{Role: types.RoleUser, Content: "hello"}}}, transport.Transcripts(t))

	v := h.view(t)
	assert.Nil(t, v.ActiveID)
	assert.True(t, v.Loading)
	assert.Equal(t, []types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant},
	}, v.Messages)

	transport.PushFrame(t, protocol.SessionAssigned{ID: 7, ModelUsed: "google/gemini-2.0-flash-001"})
	transport.PushFrame(t, protocol.Delta{Text: "h"})
	transport.PushFrame(t, protocol.Delta{Text: "i"})
	transport.PushFrame(t, protocol.StreamEnd{})

	v = h.waitView(t, func(v session.View) bool { return !v.Loading })
	require.NotNil(t, v.ActiveID)
	assert.Equal(t, types.ConversationID(7), *v.ActiveID)
	assert.Equal(t, []types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi"},
	}, v.Messages)

	created := h.observer.sessions()
	require.Len(t, created, 1)
	assert.Equal(t, types.ConversationID(7), created[0].ID)

	assert.Equal(t, []string{base + "/new"}, h.dialer.Dials())
	assert.False(t, transport.IsClosed())

	// selecting the new id reuses the bootstrap connection
	h.ctrl.SelectConversation(7)
	h.ctrl.Submit("again")
	require.Eventually(t, func() bool { return len(transport.Writes()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{base + "/new"}, h.dialer.Dials())

	second := transport.Transcripts(t)[1]
	assert.Equal(t, []types.TranscriptEntry{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi"},
		{Role: types.RoleUser, Content: "again"},
	}, second)
}

func TestCancelledSelectionNeverTouchesNext(t *testing.T) {
	h := newHarness(t, nil)
	release := h.dialer.Hold(urlFor(1))

	h.ctrl.SelectConversation(1)
	require.Eventually(t, func() bool { return h.dialer.DialCount(urlFor(1)) == 1 }, time.Second, 5*time.Millisecond)
	h.ctrl.SelectConversation(3)

	t3 := h.dialer.WaitTransport(t, urlFor(3))
	t3.PushFrame(t, protocol.History{Messages: []types.Message{{Role: types.RoleUser, Content: "three"}}})
	h.waitView(t, func(v session.View) bool { return len(v.Messages) == 1 })

	// the abandoned dial completes late and the backend talks anyway
	release()
	if t1 := h.dialer.Transport(urlFor(1)); t1 != nil {
		t1.PushFrame(t, protocol.History{Messages: []types.Message{{Role: types.RoleUser, Content: "one"}}})
		t1.PushFrame(t, protocol.Delta{Text: "stale"})
	}
	time.Sleep(50 * time.Millisecond)

	v := h.view(t)
	require.NotNil(t, v.ActiveID)
	assert.Equal(t, types.ConversationID(3), *v.ActiveID)
	assert.Equal(t, []types.Message{{Role: types.RoleUser, Content: "three"}}, v.Messages)
}

func TestFramesAfterSwitchAreIgnored(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(1)
	t1 := h.dialer.WaitTransport(t, urlFor(1))
	h.waitOpen(t)

	t1.PushFrame(t, protocol.Delta{Text: "late-1"})
	h.ctrl.SelectConversation(3)
	t1.PushFrame(t, protocol.Delta{Text: "late-2"})

	t3 := h.dialer.WaitTransport(t, urlFor(3))
	t3.PushFrame(t, protocol.History{Messages: []types.Message{}})
	t3.PushFrame(t, protocol.Delta{Text: "fresh"})

	v := h.waitView(t, func(v session.View) bool { return len(v.Messages) == 1 })
	assert.Equal(t, "fresh", v.Messages[0].Content)
	assert.True(t, t1.IsClosed())
}

func TestSubmitWithoutOpenConnectionIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.dialer.Hold(urlFor(5))

	h.ctrl.SelectConversation(5)
	h.ctrl.Submit("x")

	h.observer.waitError(t, ws.ErrNotConnected)
	v := h.view(t)
	assert.Empty(t, v.Messages)
	assert.False(t, v.Loading)
	assert.Equal(t, session.PhaseConnecting, v.Phase)
}

func TestHistoryFrameReplacesList(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(2)
	tr := h.dialer.WaitTransport(t, urlFor(2))
	tr.PushFrame(t, protocol.History{Messages: []types.Message{
		{Role: types.RoleUser, Content: "a"},
		{Role: types.RoleAssistant, Content: "b"},
	}})
	h.waitView(t, func(v session.View) bool { return len(v.Messages) == 2 })

	tr.PushFrame(t, protocol.History{Messages: []types.Message{}})
	v := h.waitView(t, func(v session.View) bool { return len(v.Messages) == 0 })
	assert.NotNil(t, v.Messages)
}

func TestNewChatClosesLiveConnection(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(4)
	tr := h.dialer.WaitTransport(t, urlFor(4))
	tr.PushFrame(t, protocol.History{Messages: []types.Message{{Role: types.RoleUser, Content: "a"}}})
	h.waitView(t, func(v session.View) bool { return len(v.Messages) == 1 })

	h.ctrl.NewChat()
	v := h.view(t)
	assert.Nil(t, v.ActiveID)
	assert.Empty(t, v.Messages)
	assert.Equal(t, session.PhaseIdle, v.Phase)
	assert.True(t, tr.IsClosed())
}

func TestTransportLossIsTerminal(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(8)
	tr := h.dialer.WaitTransport(t, urlFor(8))
	h.waitOpen(t)

	h.ctrl.Submit("question")
	h.waitView(t, func(v session.View) bool { return v.Loading })

	tr.Hangup()
	h.observer.waitError(t, ws.ErrTransportClosed)

	v := h.view(t)
	assert.False(t, v.Loading)
	assert.Equal(t, session.PhaseClosing, v.Phase)

	var terr *ws.TransportError
	var found bool
	for _, err := range h.observer.errors() {
		if errors.As(err, &terr) {
			found = true
		}
	}
	assert.True(t, found)

	before := v.Messages
	h.ctrl.Submit("retry")
	require.Eventually(t, func() bool {
		n := 0
		for _, err := range h.observer.errors() {
			if errors.Is(err, ws.ErrNotConnected) {
				n++
			}
		}
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, before, h.view(t).Messages)
	assert.Equal(t, 1, h.dialer.DialCount(urlFor(8)))
}

func TestBackendErrorKeepsConnectionOpen(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SelectConversation(9)
	tr := h.dialer.WaitTransport(t, urlFor(9))
	h.waitOpen(t)

	h.ctrl.Submit("q")
	h.waitView(t, func(v session.View) bool { return v.Loading })
	tr.PushFrame(t, protocol.BackendError{Message: "model exploded"})

	v := h.waitView(t, func(v session.View) bool { return !v.Loading })
	assert.Equal(t, session.PhaseOpen, v.Phase)

	var berr *session.BackendError
	require.Eventually(t, func() bool {
		for _, err := range h.observer.errors() {
			if errors.As(err, &berr) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "model exploded", berr.Message)
	assert.False(t, tr.IsClosed())
}

func TestSubmissionGuards(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.Submit("   ")
	h.observer.waitError(t, session.ErrEmptySubmission)
	assert.Empty(t, h.dialer.Dials())

	h.ctrl.SelectConversation(10)
	h.dialer.WaitTransport(t, urlFor(10))
	h.waitOpen(t)

	h.ctrl.Submit("first")
	h.ctrl.Submit("second")
	h.observer.waitError(t, session.ErrTurnInProgress)

	v := h.view(t)
	assert.Len(t, v.Messages, 2)
	assert.Equal(t, "first", v.Messages[0].Content)
}

func TestHistoryPriming(t *testing.T) {
	history := testutil.NewMockHistory(t)
	history.On("GetSession", mock.Anything, types.ConversationID(11)).Return(&types.Conversation{
		Messages: []types.Message{{Role: types.RoleUser, Content: "from rest"}},
	}, nil).Once()

	h := newHarness(t, history)
	h.dialer.Hold(urlFor(11))
	h.ctrl.SelectConversation(11)

	v := h.waitView(t, func(v session.View) bool { return len(v.Messages) == 1 })
	assert.Equal(t, "from rest", v.Messages[0].Content)
	assert.Equal(t, session.PhaseConnecting, v.Phase)
}

func TestStalePrimingIsDropped(t *testing.T) {
	gate := make(chan struct{})
	history := testutil.NewMockHistory(t)
	history.On("GetSession", mock.Anything, types.ConversationID(12)).
		Run(func(mock.Arguments) { <-gate }).
		Return(&types.Conversation{Messages: []types.Message{{Role: types.RoleUser, Content: "twelve"}}}, nil).Once()
	history.On("GetSession", mock.Anything, types.ConversationID(13)).
		Return(nil, errors.New("boom")).Once()

	h := newHarness(t, history)
	h.ctrl.SelectConversation(12)
	h.dialer.WaitTransport(t, urlFor(12))
	h.ctrl.SelectConversation(13)
	h.dialer.WaitTransport(t, urlFor(13))
	close(gate)

	time.Sleep(50 * time.Millisecond)
	v := h.view(t)
	require.NotNil(t, v.ActiveID)
	assert.Equal(t, types.ConversationID(13), *v.ActiveID)
	assert.Empty(t, v.Messages)
}

func TestSelectionLoadsUntilFetchCompletes(t *testing.T) {
	gate := make(chan struct{})
	history := testutil.NewMockHistory(t)
	history.On("GetSession", mock.Anything, types.ConversationID(14)).
		Run(func(mock.Arguments) { <-gate }).
		Return(&types.Conversation{Messages: []types.Message{{Role: types.RoleUser, Content: "fourteen"}}}, nil).Once()

	h := newHarness(t, history)
	h.ctrl.SelectConversation(14)
	h.waitOpen(t)

	assert.True(t, h.view(t).Loading)
	h.ctrl.Submit("too early")
	h.observer.waitError(t, session.ErrTurnInProgress)

	close(gate)
	v := h.waitView(t, func(v session.View) bool { return !v.Loading })
	assert.Equal(t, []types.Message{{Role: types.RoleUser, Content: "fourteen"}}, v.Messages)
}

func TestSocketHistoryEndsLoading(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	history := testutil.NewMockHistory(t)
	history.On("GetSession", mock.Anything, types.ConversationID(15)).
		Run(func(mock.Arguments) { <-gate }).
		Return(nil, errors.New("slow")).Maybe()

	h := newHarness(t, history)
	h.ctrl.SelectConversation(15)
	transport := h.dialer.WaitTransport(t, urlFor(15))
	h.waitOpen(t)
	assert.True(t, h.view(t).Loading)

	transport.PushFrame(t, protocol.History{Messages: []types.Message{{Role: types.RoleUser, Content: "socket"}}})
	v := h.waitView(t, func(v session.View) bool { return !v.Loading })
	assert.Equal(t, "socket", v.Messages[0].Content)

	h.ctrl.Submit("now")
	require.Eventually(t, func() bool { return len(transport.Writes()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestFailedFetchEndsLoading(t *testing.T) {
	gate := make(chan struct{})
	history := testutil.NewMockHistory(t)
	history.On("GetSession", mock.Anything, types.ConversationID(16)).
		Run(func(mock.Arguments) { <-gate }).
		Return(nil, errors.New("boom")).Once()

	h := newHarness(t, history)
	h.dialer.Hold(urlFor(16))
	h.ctrl.SelectConversation(16)
	assert.True(t, h.view(t).Loading)

	close(gate)
	v := h.waitView(t, func(v session.View) bool { return !v.Loading })
	assert.Empty(t, v.Messages)
	assert.Equal(t, session.PhaseConnecting, v.Phase)
}

func TestSnapshotAfterStop(t *testing.T) {
	ctrl := session.NewController(session.Options{BaseURL: base, Dialer: testutil.NewFakeDialer()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, ctrl.Run(ctx), context.Canceled)

	_, err := ctrl.Snapshot(context.Background())
	assert.ErrorIs(t, err, session.ErrStopped)
}
