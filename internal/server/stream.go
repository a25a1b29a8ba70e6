package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // any origin in development
	},
}

// streamConn is one accepted stream; all writes happen on the handler
// goroutine
type streamConn struct {
	conn    *websocket.Conn
	server  *Server
	logger  *zap.Logger
	session types.ConversationID
}

func (sc *streamConn) send(f protocol.Frame) error {
	payload, err := protocol.Encode(f)
	if err != nil {
		return err
	}
	sc.server.metrics.RecordWSMessage("out", f.Kind().String())
	return sc.conn.WriteMessage(websocket.TextMessage, payload)
}

// reject reports an error frame and closes with a policy violation
func (sc *streamConn) reject(msg string) {
	_ = sc.send(protocol.BackendError{Message: msg})
	_ = sc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg),
		time.Now().Add(time.Second))
}

func (s *Server) handleStream(c *gin.Context) {
	target := c.Param("target")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.IncWSConnections()
	defer s.metrics.DecWSConnections()

	sc := &streamConn{conn: conn, server: s, logger: s.logger.With(zap.String("target", target))}

	if target == "new" {
		model := s.catalog.Current()
		conv := s.store.Create(model.ID)
		sc.session = *conv.ID
		if err := sc.send(protocol.SessionAssigned{ID: sc.session, ModelUsed: model.ID}); err != nil {
			return
		}
		sc.logger.Info("Conversation created", zap.Stringer("session_id", sc.session), zap.String("model", model.ID))
	} else {
		id, err := types.ParseConversationID(target)
		if err != nil {
			sc.reject("Error loading session: " + err.Error())
			return
		}
		conv, ok := s.store.Get(id)
		if !ok {
			sc.reject("Session not found")
			return
		}
		sc.session = id
		if err := sc.send(protocol.History{Messages: conv.Messages}); err != nil {
			return
		}
		sc.logger.Debug("Conversation resumed", zap.Stringer("session_id", id))
	}

	sc.serve(c)
}

func (sc *streamConn) serve(c *gin.Context) {
	ctx := c.Request.Context()
	s := sc.server

	for {
		_, data, err := sc.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sc.logger.Debug("Stream read ended", zap.Error(err))
			}
			return
		}
		s.metrics.RecordWSMessage("in", "transcript")

		transcript, err := protocol.DecodeTranscript(data)
		if err != nil {
			sc.logger.Warn("Bad transcript", zap.Error(err))
			if sc.send(protocol.BackendError{Message: err.Error()}) != nil || sc.send(protocol.StreamEnd{}) != nil {
				return
			}
			continue
		}

		if err := sc.turn(ctx, transcript); err != nil {
			sc.logger.Debug("Stream write failed", zap.Error(err))
			return
		}
	}
}

// turn answers one transcript. It returns an error only when the stream
// can no longer be written.
func (sc *streamConn) turn(ctx context.Context, transcript []types.TranscriptEntry) error {
	s := sc.server
	model := s.catalog.Current()
	s.store.SetModel(sc.session, model.ID)

	if n := len(transcript); n > 0 && transcript[n-1].Role == types.RoleUser {
		_ = s.store.Append(sc.session, types.Message{Role: types.RoleUser, Content: transcript[n-1].Content})
	}

	var writeErr error
	emit := func(f protocol.Frame) error {
		if err := sc.send(f); err != nil {
			writeErr = err
			return err
		}
		return nil
	}

	reply, err := s.responder.Respond(ctx, model, transcript, emit)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		sc.logger.Warn("Turn failed", zap.Error(err))
		if err := sc.send(protocol.BackendError{Message: err.Error()}); err != nil {
			return err
		}
	}
	_ = s.store.Append(sc.session, reply)

	return sc.send(protocol.StreamEnd{})
}
