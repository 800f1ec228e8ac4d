package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/supervisor"
)

// Inbound control commands.
const (
	CommandStart            = "start"
	CommandStop             = "stop"
	CommandUploadCredential = "upload_credential"
	CommandWatch            = "watch"
)

// Command is a control message sent by a front-end over /ws.
type Command struct {
	Command    string `json:"command"`
	TenantID   string `json:"tenant_id"`
	Credential []byte `json:"credential,omitempty"`
}

// wsConn adapts a websocket connection to router.Writer.
type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
	closeOnce sync.Once
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
		err = c.conn.Close()
	})
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.DebugContext(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	connID := uuid.NewString()
	log := s.log.With(logger.ConnectionID(connID))
	wc := &wsConn{conn: conn, writeWait: s.cfg.WriteWait}
	s.router.Attach(connID, wc)
	log.Info("connection opened", "remote_addr", r.RemoteAddr)

	ctx := context.WithoutCancel(r.Context())
	done := make(chan struct{})
	go s.keepalive(wc, done)

	defer func() {
		close(done)
		s.router.Remove(connID)
		s.sessions.HandleConnectionClosed(ctx, connID)
		log.Info("connection closed")
	}()

	conn.SetReadLimit(s.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", logger.Error(err))
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.reply(connID, "", errors.New("malformed command"))
			continue
		}
		s.dispatch(ctx, connID, cmd)
	}
}

func (s *Server) keepalive(wc *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := wc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, connID string, cmd Command) {
	switch cmd.Command {
	case CommandStart, CommandUploadCredential, CommandWatch:
		if err := credstore.ValidateTenantID(cmd.TenantID); err != nil {
			s.reply(connID, cmd.TenantID, errors.New("invalid tenant id"))
			return
		}
		if err := s.router.Bind(connID, cmd.TenantID); err != nil {
			s.reply(connID, cmd.TenantID, err)
			return
		}
	case CommandStop:
		if cmd.TenantID == "" {
			cmd.TenantID, _ = s.router.TenantOf(connID)
		}
	default:
		s.reply(connID, cmd.TenantID, errors.New("unknown command"))
		return
	}

	var err error
	switch cmd.Command {
	case CommandStart:
		err = s.sessions.Start(ctx, cmd.TenantID, connID)
	case CommandUploadCredential:
		err = s.sessions.StartWithCredential(ctx, cmd.TenantID, connID, cmd.Credential)
	case CommandStop:
		err = s.sessions.Stop(ctx, cmd.TenantID)
	}
	if err != nil {
		s.log.DebugContext(ctx, "command failed",
			logger.ConnectionID(connID),
			logger.TenantID(cmd.TenantID),
			logger.Event(cmd.Command),
			logger.Error(err),
		)
		// the supervisor already sent the owner its error event
		if errors.Is(err, supervisor.ErrInitializationFailure) {
			return
		}
		s.reply(connID, cmd.TenantID, err)
	}
}

func (s *Server) reply(connID, tenantID string, err error) {
	msg := err.Error()
	if kind := supervisor.Kind(err); kind != "" {
		msg = kind
	}
	s.router.Send(connID, supervisor.EventError, supervisor.MessagePayload{TenantID: tenantID, Message: msg})
}
