package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
	"github.com/GriffinCanCode/chatstream/internal/ws"
)

// HistoryFetcher loads a conversation over request/response
type HistoryFetcher interface {
	GetSession(ctx context.Context, id types.ConversationID) (*types.Conversation, error)
}

// Options configures a Controller
type Options struct {
	BaseURL          string
	Dialer           ws.Dialer
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// History primes a selected conversation; nil disables priming
	History  HistoryFetcher
	Observer Observer
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	// QueueSize bounds pending commands and connection events
	QueueSize int
}

type fetchResult struct {
	conn *ws.Connection
	seq  uint64
	conv *types.Conversation
	err  error
}

// Controller owns the active conversation and its connection
type Controller struct {
	opts     Options
	logger   *zap.Logger
	observer Observer

	cmds    chan func(ctx context.Context)
	events  chan ws.Event
	fetched chan fetchResult
	stopped chan struct{}

	// loop-owned state
	phase    Phase
	activeID *types.ConversationID
	live     *ws.Connection
	liveKey  connKey
	table    *connTable
	loading  bool
	// priming is set while a selected conversation waits for its history
	priming     bool
	fetchSeq    uint64
	fetchCancel context.CancelFunc
}

// NewController creates a controller; call Run to start it
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	return &Controller{
		opts:     opts,
		logger:   opts.Logger,
		observer: opts.Observer,
		cmds:     make(chan func(context.Context), opts.QueueSize),
		events:   make(chan ws.Event, opts.QueueSize),
		fetched:  make(chan fetchResult, 1),
		stopped:  make(chan struct{}),
		table:    newConnTable(),
	}
}

// Run processes commands and connection events until ctx is done. The live
// connection is closed on return.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	defer c.closeLive()

	c.logger.Info("Controller started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Controller stopped")
			return ctx.Err()
		case cmd := <-c.cmds:
			cmd(ctx)
		case ev := <-c.events:
			c.handleEvent(ev)
		case r := <-c.fetched:
			c.handleFetch(r)
		}
	}
}

func (c *Controller) enqueue(cmd func(context.Context)) {
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
	}
}

// SelectConversation makes id the active conversation
func (c *Controller) SelectConversation(id types.ConversationID) {
	c.enqueue(func(ctx context.Context) { c.selectConversation(ctx, &id) })
}

// NewChat clears the active conversation; the next submission starts a new one
func (c *Controller) NewChat() {
	c.enqueue(func(ctx context.Context) { c.selectConversation(ctx, nil) })
}

// Submit sends text as the next user turn
func (c *Controller) Submit(text string) {
	c.enqueue(func(ctx context.Context) { c.submit(ctx, text) })
}

// Snapshot returns the current view, waiting for commands queued before it
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case c.cmds <- func(context.Context) { reply <- c.view() }:
	case <-c.stopped:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-c.stopped:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Controller) selectConversation(ctx context.Context, id *types.ConversationID) {
	if id == nil {
		if c.activeID == nil && c.live == nil {
			return
		}
		c.closeLive()
		c.activeID = nil
		c.loading = false
		c.notify()
		return
	}

	if conn, ok := c.table.lookup(sessionKey(*id)); ok && conn.State() != ws.StateClosed {
		c.logger.Debug("Reusing connection", zap.Stringer("session_id", *id))
		return
	}

	c.closeLive()
	sid := *id
	c.activeID = &sid
	c.loading = false

	conn := c.open(ctx, ws.ExistingSession(sid), sessionKey(sid))
	if conn == nil {
		return
	}
	c.prime(ctx, conn, sid)
	c.notify()
}

func (c *Controller) submit(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		c.reject("empty", ErrEmptySubmission)
		return
	}
	if c.loading {
		c.reject("busy", ErrTurnInProgress)
		return
	}

	switch {
	case c.activeID == nil && c.live == nil:
		transcript := []types.Message{{Role: types.RoleUser, Content: text}}
		conn := ws.Open(ctx, c.connOptions(), ws.NewSession(transcript), c.sink)
		if !c.register(conn, bootstrapKey(conn)) {
			return
		}
		conn.Assembler().AppendPlaceholder()
		c.logger.Info("Starting new conversation", zap.String("conn_id", conn.ID().String()))

	case c.live != nil && c.live.State() == ws.StateOpen:
		asm := c.live.Assembler()
		transcript := append(asm.Snapshot(), types.Message{Role: types.RoleUser, Content: text})
		if err := c.live.Send(transcript); err != nil {
			c.reject("not_connected", err)
			return
		}
		c.cancelFetch()
		asm.AppendUser(text)
		asm.AppendPlaceholder()

	default:
		c.reject("not_connected", ws.ErrNotConnected)
		return
	}

	c.loading = true
	c.opts.Metrics.RecordSubmission("accepted")
	c.notify()
}

func (c *Controller) reject(outcome string, err error) {
	c.opts.Metrics.RecordSubmission(outcome)
	c.logger.Debug("Submission rejected", zap.Error(err))
	if outcome == "not_connected" {
		c.loading = false
	}
	c.observer.OnError(err)
}

func (c *Controller) connOptions() ws.Options {
	return ws.Options{
		BaseURL:          c.opts.BaseURL,
		Dialer:           c.opts.Dialer,
		HandshakeTimeout: c.opts.HandshakeTimeout,
		WriteTimeout:     c.opts.WriteTimeout,
		Logger:           c.logger.Named("connection"),
		Metrics:          c.opts.Metrics,
	}
}

func (c *Controller) open(ctx context.Context, target ws.Target, key connKey) *ws.Connection {
	conn := ws.Open(ctx, c.connOptions(), target, c.sink)
	if !c.register(conn, key) {
		return nil
	}
	return conn
}

func (c *Controller) register(conn *ws.Connection, key connKey) bool {
	if err := c.table.put(key, conn); err != nil {
		c.logger.Error("Refusing second live connection", zap.Error(err))
		conn.Close()
		c.observer.OnError(err)
		return false
	}
	c.live = conn
	c.liveKey = key
	c.phase = PhaseConnecting
	return true
}

// sink is handed to connections; it runs on their reader goroutines
func (c *Controller) sink(ev ws.Event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) closeLive() {
	c.cancelFetch()
	c.priming = false
	if c.live == nil {
		c.phase = PhaseIdle
		return
	}

	c.phase = PhaseClosing
	c.live.Close()
	c.table.evict(c.live)
	c.live = nil
	c.liveKey = connKey{}
	c.phase = PhaseIdle
}

func (c *Controller) handleEvent(ev ws.Event) {
	if ev.Conn == nil || ev.Conn != c.live {
		return
	}

	switch ev.Kind {
	case ws.EventOpened:
		c.phase = PhaseOpen
		c.notify()
	case ws.EventFrame:
		c.handleFrame(ev.Conn, ev.Frame)
	case ws.EventMalformed:
		// already logged and counted by the connection
	case ws.EventClosed:
		c.phase = PhaseClosing
		c.loading = false
		c.priming = false
		c.observer.OnError(ev.Err)
		c.notify()
	}
}

func (c *Controller) handleFrame(conn *ws.Connection, frame protocol.Frame) {
	changed := conn.Apply(frame)

	switch f := frame.(type) {
	case protocol.History:
		c.primed()
	case protocol.SessionAssigned:
		c.assign(conn, f)
		changed = true
	case protocol.StreamEnd:
		c.loading = false
		changed = true
	case protocol.BackendError:
		c.loading = false
		c.observer.OnError(&BackendError{Message: f.Message})
		changed = true
	}

	if changed {
		c.notify()
	}
}

func (c *Controller) assign(conn *ws.Connection, f protocol.SessionAssigned) {
	if c.activeID != nil {
		return
	}
	sid, ok := conn.BoundID()
	if !ok {
		return
	}

	c.activeID = &sid
	to := sessionKey(sid)
	if c.table.rebind(c.liveKey, to) {
		c.liveKey = to
	}

	c.logger.Info("Conversation created",
		zap.Stringer("session_id", sid),
		zap.String("model", f.ModelUsed))
	c.observer.OnSessionCreated(types.SessionSummary{ID: sid, CreatedAt: types.Now()})
}

// prime fetches the conversation over request/response. Whichever of the
// fetch and the socket's history lands last wins.
func (c *Controller) prime(ctx context.Context, conn *ws.Connection, sid types.ConversationID) {
	if c.opts.History == nil {
		return
	}

	c.cancelFetch()
	c.fetchSeq++
	seq := c.fetchSeq

	fetchCtx, cancel := context.WithCancel(ctx)
	c.fetchCancel = cancel
	c.priming = true
	c.loading = true

	go func() {
		conv, err := c.opts.History.GetSession(fetchCtx, sid)
		select {
		case c.fetched <- fetchResult{conn: conn, seq: seq, conv: conv, err: err}:
		case <-fetchCtx.Done():
		case <-c.stopped:
		}
	}()
}

func (c *Controller) cancelFetch() {
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}
	c.fetchSeq++
}

func (c *Controller) handleFetch(r fetchResult) {
	if r.conn != c.live || r.seq != c.fetchSeq {
		return
	}
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}

	wasPriming := c.priming
	c.primed()

	changed := false
	if r.err != nil {
		c.logger.Warn("History fetch failed", zap.Error(r.err))
	} else if r.conv != nil {
		changed = r.conn.Apply(protocol.History{Messages: r.conv.Messages})
	}
	if changed || wasPriming {
		c.notify()
	}
}

// primed ends the loading state a selection started
func (c *Controller) primed() {
	if c.priming {
		c.priming = false
		c.loading = false
	}
}

func (c *Controller) view() View {
	v := View{
		Phase:    c.phase,
		Loading:  c.loading,
		Messages: []types.Message{},
	}
	if c.activeID != nil {
		sid := *c.activeID
		v.ActiveID = &sid
	}
	if c.live != nil {
		v.Messages = c.live.Assembler().Snapshot()
	}
	return v
}

func (c *Controller) notify() {
	c.observer.OnUpdate(c.view())
}
