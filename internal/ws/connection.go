package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/domain/assembler"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/id"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// closeGrace bounds the close frame write
const closeGrace = time.Second

// State is the transport state of a connection
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind classifies connection events
type EventKind int

const (
	// EventOpened fires once the transport is up (and, for a bootstrap, the
	// transcript has been written)
	EventOpened EventKind = iota
	// EventFrame carries one decoded inbound frame
	EventFrame
	// EventMalformed reports a dropped payload; the connection keeps running
	EventMalformed
	// EventClosed is terminal and carries the cause
	EventClosed
)

// Event is posted to the sink by the connection's reader goroutine
type Event struct {
	Conn  *Connection
	Kind  EventKind
	Frame protocol.Frame
	Err   error
}

// Options configures a connection
type Options struct {
	BaseURL          string
	Dialer           Dialer
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           *zap.Logger
	Metrics          *monitoring.Metrics
}

// Connection is one streaming conversation transport
type Connection struct {
	id      id.ConnectionID
	url     string
	target  Target
	opts    Options
	logger  *zap.Logger
	sink    func(Event)
	cancel  context.CancelFunc
	done    chan struct{}
	writeMu sync.Mutex

	// assembler is only touched by the goroutine that receives events
	assembler *assembler.Assembler

	mu        sync.Mutex
	state     State
	closed    bool
	transport Transport
	boundID   *types.ConversationID
}

// Open starts connecting to target and returns immediately. Events are
// delivered to sink from a single goroutine, in order.
func Open(ctx context.Context, opts Options, target Target, sink func(Event)) *Connection {
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	connID := id.NewConnectionID()
	url := target.URL(opts.BaseURL)

	ctx, cancel := context.WithCancel(ctx)
	c := &Connection{
		id:        connID,
		url:       url,
		target:    target,
		opts:      opts,
		logger:    opts.Logger.With(zap.String("conn_id", connID.String()), zap.String("url", url)),
		sink:      sink,
		cancel:    cancel,
		done:      make(chan struct{}),
		assembler: assembler.New(target.transcript...),
		state:     StateConnecting,
	}
	if sid, ok := target.ID(); ok {
		c.boundID = &sid
	}

	go c.run(ctx)
	return c
}

// ID returns the connection's log correlation id
func (c *Connection) ID() id.ConnectionID {
	return c.id
}

// URL returns the dialed endpoint
func (c *Connection) URL() string {
	return c.url
}

// Target returns what the connection was opened for
func (c *Connection) Target() Target {
	return c.target
}

// State returns the current transport state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BoundID returns the conversation id, if known
func (c *Connection) BoundID() (types.ConversationID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.boundID == nil {
		return 0, false
	}
	return *c.boundID, true
}

// Assembler returns the message list fed by this connection
func (c *Connection) Assembler() *assembler.Assembler {
	return c.assembler
}

// Done is closed when the reader goroutine has exited
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Apply folds a frame delivered by this connection into its message list.
// A SessionAssigned frame binds the connection's id (once). It returns true
// if the message list changed. After Close it does nothing.
func (c *Connection) Apply(f protocol.Frame) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if sa, ok := f.(protocol.SessionAssigned); ok {
		c.bindLocked(sa.ID)
	}
	c.mu.Unlock()

	return c.assembler.Apply(f)
}

func (c *Connection) bindLocked(sid types.ConversationID) {
	if c.boundID != nil {
		if *c.boundID != sid {
			c.logger.Warn("Ignoring second session assignment",
				zap.Stringer("bound", *c.boundID),
				zap.Stringer("session_id", sid))
		}
		return
	}
	c.boundID = &sid
	c.logger.Info("Session bound", zap.Stringer("session_id", sid))
}

// Send writes the full transcript. It fails with ErrNotConnected unless the
// transport is open.
func (c *Connection) Send(transcript []types.Message) error {
	c.mu.Lock()
	if c.closed || c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotConnected
	}
	t := c.transport
	c.mu.Unlock()

	return c.write(t, transcript)
}

func (c *Connection) write(t Transport, transcript []types.Message) error {
	payload, err := protocol.EncodeTranscript(transcript)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		_ = t.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := t.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &TransportError{Op: "write", URL: c.url, Err: err}
	}

	c.opts.Metrics.RecordTranscriptSent()
	c.logger.Debug("Transcript sent", zap.Int("messages", len(transcript)))
	return nil
}

// Close releases the transport and cancels an in-flight dial. It does not
// wait for the reader goroutine; use Done for that.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	t := c.transport
	c.mu.Unlock()

	c.cancel()
	if t != nil {
		// a stalled Send holds writeMu; the close frame must not queue behind it
		_ = t.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		_ = t.Close()
	}
	c.logger.Debug("Connection closed")
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) run(ctx context.Context) {
	defer close(c.done)

	t, err := c.dial(ctx)
	if err != nil {
		c.fail(&TransportError{Op: "dial", URL: c.url, Err: err})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = t.Close()
		return
	}
	c.transport = t
	c.mu.Unlock()

	c.opts.Metrics.ConnectionOpened(c.target.label())
	reason := "closed"
	defer func() { c.opts.Metrics.ConnectionClosed(reason) }()

	if c.target.IsBootstrap() {
		if err := c.write(t, c.target.transcript); err != nil {
			reason = "error"
			c.fail(err)
			return
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateOpen
	c.mu.Unlock()

	c.logger.Info("Connection open", zap.Bool("bootstrap", c.target.IsBootstrap()))
	c.emit(Event{Kind: EventOpened})

	for {
		_, data, err := t.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			reason = "error"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrTransportClosed
			}
			c.fail(&TransportError{Op: "read", URL: c.url, Err: err})
			return
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			c.opts.Metrics.RecordMalformedFrame()
			c.logger.Warn("Dropping malformed frame", zap.Error(err))
			c.emit(Event{Kind: EventMalformed, Err: err})
			continue
		}

		c.opts.Metrics.RecordFrame(frame.Kind().String())
		c.emit(Event{Kind: EventFrame, Frame: frame})
	}
}

func (c *Connection) dial(ctx context.Context) (Transport, error) {
	if c.opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.HandshakeTimeout)
		defer cancel()
	}
	return c.opts.Dialer.Dial(ctx, c.url)
}

// fail marks the transport closed and emits the terminal event, unless the
// connection was closed by its owner.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	t := c.transport
	c.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}

	if errors.Is(err, context.Canceled) {
		c.logger.Debug("Connection cancelled", zap.Error(err))
	} else {
		c.logger.Warn("Connection failed", zap.Error(err))
	}
	c.emit(Event{Kind: EventClosed, Err: err})
}

func (c *Connection) emit(ev Event) {
	ev.Conn = c
	c.sink(ev)
}
