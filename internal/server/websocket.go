package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	nerr "github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/pkg/router"
)

// maxMessageBytes bounds a single client message.
const maxMessageBytes = 4096

// Client message types.
const (
	msgNavigate = "navigate"
	msgBack     = "back"
	msgForward  = "forward"
)

// clientMessage is a message sent by the host shell.
type clientMessage struct {
	Type    string         `json:"type"`
	Path    string         `json:"path,omitempty"`
	Replace bool           `json:"replace,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// helloMessage is sent once after the upgrade.
type helloMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	History      string `json:"history"`
	Base         string `json:"base"`
}

// navigationMessage reports a committed navigation or a history move.
type navigationMessage struct {
	Type string `json:"type"`
	navigationBody
	CanGoBack    bool `json:"can_go_back"`
	CanGoForward bool `json:"can_go_forward"`
}

// errorMessage reports a rejected client message.
type errorMessage struct {
	Type string `json:"type"`
	nerr.Body
}

// SameOriginCheck accepts requests without an Origin header and those
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || r.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// conn is one websocket navigation session. Each session owns a router,
// so its history stack is private to the connection.
type conn struct {
	id     string
	ws     *websocket.Conn
	router *router.Router
	server *Server
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordWebSocketError("upgrade")
		}
		return
	}

	c := &conn{
		id:     uuid.NewString(),
		ws:     ws,
		server: s,
	}
	c.logger = s.logger.With("conn", c.id)
	c.router = s.newRouter(c.logger, router.WithObserver(c.sendNavigation))

	if !s.register(c) {
		c.close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.unregister(c)

	c.logger.Info("websocket connected", "remote", r.RemoteAddr)
	c.send(helloMessage{
		Type:         "hello",
		ConnectionID: c.id,
		History:      s.config.History.String(),
		Base:         c.router.Base(),
	})

	c.readLoop(r.Context())
}

func (s *Server) register(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.conns[c.id] = c
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}
	return true
}

func (s *Server) unregister(c *conn) {
	s.mu.Lock()
	if _, ok := s.conns[c.id]; ok {
		delete(s.conns, c.id)
		if s.metrics != nil {
			s.metrics.ConnectionClosed()
		}
	}
	s.mu.Unlock()
	c.close(websocket.CloseNormalClosure, "")
}

// readLoop handles client messages until the connection closes.
func (c *conn) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageBytes)
	for {
		c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))

		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				c.recordError("read")
			}
			c.logger.Info("websocket disconnected")
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(nerr.New("N402").WithDetail(err.Error()))
			c.recordError("decode")
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *conn) handle(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case msgNavigate:
		var opts []router.NavigateOption
		if msg.Replace {
			opts = append(opts, router.WithReplace())
		}
		if len(msg.Params) > 0 {
			opts = append(opts, router.WithParams(msg.Params))
		}
		if _, err := c.router.NavigateContext(ctx, msg.Path, opts...); err != nil {
			c.sendError(nerr.New("N400").WithDetail(err.Error()))
		}

	case msgBack:
		if _, ok := c.router.Back(); !ok {
			c.sendError(nerr.New("N403").WithDetail("already at the first entry"))
		}

	case msgForward:
		if _, ok := c.router.Forward(); !ok {
			c.sendError(nerr.New("N403").WithDetail("already at the last entry"))
		}

	default:
		c.sendError(nerr.New("N402").WithDetail("type " + msg.Type))
	}
}

// sendNavigation is the router observer; it runs after each commit.
func (c *conn) sendNavigation(nav *router.Navigation) {
	c.send(navigationMessage{
		Type:           "navigation",
		navigationBody: newNavigationBody(nav),
		CanGoBack:      c.router.CanGoBack(),
		CanGoForward:   c.router.CanGoForward(),
	})
}

func (c *conn) sendError(e *nerr.NotesError) {
	c.send(errorMessage{Type: "error", Body: e.Body()})
}

func (c *conn) send(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
	if err := c.ws.WriteJSON(v); err != nil {
		c.logger.Warn("write error", "error", err)
		c.recordError("write")
	}
}

func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
		c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

func (c *conn) recordError(kind string) {
	if c.server.metrics != nil {
		c.server.metrics.RecordWebSocketError(kind)
	}
}
