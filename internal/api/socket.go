package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/chat"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBufferSize = 64
)

var (
	errSessionClosed  = errors.New("chat session closed")
	errSendBufferFull = errors.New("chat session send buffer full")
)

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SocketHandler upgrades /socket requests and feeds their frames to the chat
// router. The caller's identity comes from its token, never from a frame.
type SocketHandler struct {
	router     *chat.Router
	jwtService *auth.JWTService
	upgrader   websocket.Upgrader
}

// NewSocketHandler accepts handshakes from allowedOrigins, or only from the
// same origin when the list is empty.
func NewSocketHandler(router *chat.Router, jwtService *auth.JWTService, allowedOrigins []string) *SocketHandler {
	h := &SocketHandler{
		router:     router,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed["*"] || allowed[r.Header.Get("Origin")]
		}
	}
	return h
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractSocketToken(r)
	if token == "" {
		respondMessage(w, http.StatusUnauthorized, "No Token")
		return
	}
	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "Invalid Token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Printf("[Chat] Upgrade failed: %v", err)
		return
	}

	who := chat.Identity{ID: claims.UserID, Name: claims.Name, IsAdmin: claims.IsAdmin}
	conn := newSocketConn(ws)
	go conn.writePump()
	conn.readPump(h.router, who)
}

// socketConn is one WebSocket connection acting as a chat.Session. Sends are
// queued on a buffered channel drained by writePump.
type socketConn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSocketConn(ws *websocket.Conn) *socketConn {
	return &socketConn{ws: ws, send: make(chan []byte, sendBufferSize)}
}

// Send never blocks. A closed connection or a full buffer drops the event.
func (c *socketConn) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSessionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *socketConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *socketConn) readPump(router *chat.Router, who chat.Identity) {
	defer func() {
		router.Disconnect(c)
		c.close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Chat] Read error for %s: %v", who.ID, err)
			}
			return
		}

		var frame envelope
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("[Chat] Malformed frame from %s: %v", who.ID, err)
			continue
		}
		if err := router.Dispatch(c, who, frame.Event, frame.Data); err != nil {
			log.Printf("[Chat] Dropped frame from %s: %v", who.ID, err)
		}
	}
}

func (c *socketConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
