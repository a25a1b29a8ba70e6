// Package testutil provides fakes and mocks shared by package tests.
package testutil

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
	"github.com/GriffinCanCode/chatstream/internal/ws"
)

// FakeTransport is a scripted in-memory ws.Transport
type FakeTransport struct {
	inbound   chan []byte
	readErr   chan error
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	writes   [][]byte
	controls int
	writeErr error
	stall    chan struct{}
}

// NewFakeTransport creates an open fake transport
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		inbound: make(chan []byte, 256),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

// ReadMessage implements ws.Transport
func (t *FakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case data := <-t.inbound:
		return websocket.TextMessage, data, nil
	case err := <-t.readErr:
		return 0, nil, err
	case <-t.closed:
		return 0, nil, net.ErrClosed
	}
}

// WriteMessage implements ws.Transport
func (t *FakeTransport) WriteMessage(messageType int, data []byte) error {
	if t.IsClosed() {
		return net.ErrClosed
	}

	t.mu.Lock()
	stall := t.stall
	t.mu.Unlock()
	if stall != nil {
		select {
		case <-stall:
		case <-t.closed:
			return net.ErrClosed
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	if messageType != websocket.TextMessage {
		t.controls++
		return nil
	}
	t.writes = append(t.writes, append([]byte(nil), data...))
	return nil
}

// WriteControl implements ws.Transport. It never waits on a stalled write.
func (t *FakeTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	if t.IsClosed() {
		return net.ErrClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.controls++
	return nil
}

// Controls returns how many control frames were written
func (t *FakeTransport) Controls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.controls
}

// StallWrites blocks later text writes until release is called or the
// transport closes
func (t *FakeTransport) StallWrites() (release func()) {
	gate := make(chan struct{})
	t.mu.Lock()
	t.stall = gate
	t.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// SetWriteDeadline implements ws.Transport
func (t *FakeTransport) SetWriteDeadline(time.Time) error {
	return nil
}

// Close implements ws.Transport
func (t *FakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// IsClosed reports whether Close was called
func (t *FakeTransport) IsClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Push queues a raw inbound payload
func (t *FakeTransport) Push(payload []byte) {
	select {
	case t.inbound <- payload:
	case <-t.closed:
	}
}

// PushFrame queues an encoded inbound frame
func (t *FakeTransport) PushFrame(tb testing.TB, f protocol.Frame) {
	tb.Helper()
	payload, err := protocol.Encode(f)
	require.NoError(tb, err)
	t.Push(payload)
}

// Hangup makes the next read fail as if the peer closed the stream
func (t *FakeTransport) Hangup() {
	t.FailRead(&websocket.CloseError{Code: websocket.CloseNormalClosure})
}

// FailRead makes the next read fail with err
func (t *FakeTransport) FailRead(err error) {
	select {
	case t.readErr <- err:
	default:
	}
}

// FailWrites makes every later write fail with err
func (t *FakeTransport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Writes returns the text payloads written so far
func (t *FakeTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.writes))
	copy(out, t.writes)
	return out
}

// Transcripts decodes every written payload as a transcript
func (t *FakeTransport) Transcripts(tb testing.TB) [][]types.TranscriptEntry {
	tb.Helper()
	var out [][]types.TranscriptEntry
	for _, w := range t.Writes() {
		entries, err := protocol.DecodeTranscript(w)
		require.NoError(tb, err)
		out = append(out, entries)
	}
	return out
}

// FakeDialer hands out FakeTransports and records every dial
type FakeDialer struct {
	mu         sync.Mutex
	dials      []string
	transports map[string][]*FakeTransport
	gates      map[string]chan struct{}
	errs       map[string]error
}

// NewFakeDialer creates a dialer that connects immediately
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		transports: make(map[string][]*FakeTransport),
		gates:      make(map[string]chan struct{}),
		errs:       make(map[string]error),
	}
}

// Dial implements ws.Dialer
func (d *FakeDialer) Dial(ctx context.Context, url string) (ws.Transport, error) {
	d.mu.Lock()
	d.dials = append(d.dials, url)
	gate := d.gates[url]
	err := d.errs[url]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	t := NewFakeTransport()
	d.mu.Lock()
	d.transports[url] = append(d.transports[url], t)
	d.mu.Unlock()
	return t, nil
}

// Hold makes dials to url block until the returned release is called or
// the dial is cancelled
func (d *FakeDialer) Hold(url string) (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.gates[url] = gate
	d.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Refuse makes dials to url fail with err
func (d *FakeDialer) Refuse(url string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[url] = err
}

// Dials returns every dialed URL in order
func (d *FakeDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}

// DialCount returns how many dials targeted url
func (d *FakeDialer) DialCount(url string) int {
	n := 0
	for _, u := range d.Dials() {
		if u == url {
			n++
		}
	}
	return n
}

// Transport returns the latest transport handed out for url, or nil
func (d *FakeDialer) Transport(url string) *FakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.transports[url]
	if len(ts) == 0 {
		return nil
	}
	return ts[len(ts)-1]
}

// WaitTransport waits for a transport to url to be handed out
func (d *FakeDialer) WaitTransport(tb testing.TB, url string) *FakeTransport {
	tb.Helper()
	var t *FakeTransport
	require.Eventually(tb, func() bool {
		t = d.Transport(url)
		return t != nil
	}, 2*time.Second, 5*time.Millisecond, "no dial to %s", url)
	return t
}

// ErrRefused is a convenient dial failure
var ErrRefused = errors.New("connection refused")

// MockHistory is a testify mock of the history collaborator
type MockHistory struct {
	mock.Mock
}

// GetSession mocks the GetSession method
func (m *MockHistory) GetSession(ctx context.Context, id types.ConversationID) (*types.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Conversation), args.Error(1)
}

// NewMockHistory creates a history mock with no expectations
func NewMockHistory(t *testing.T) *MockHistory {
	t.Helper()
	m := new(MockHistory)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
