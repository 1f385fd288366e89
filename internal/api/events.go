package api

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/uberfrank/bierephilo/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

func (h *SessionHandler) upgrader() *websocket.Upgrader {
	allowed := h.server.opts.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// events streams a session's mug, round and completion events over a websocket.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}

	// subscribe before the handshake so nothing published after it is missed
	ch := h.server.sessions.Broadcaster(s.ID).Subscribe()
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.server.sessions.Release(s.ID, ch)
		log.Printf("[Events] upgrade %s: %v", s.ID, err)
		return
	}
	log.Printf("[Events] viewer connected to %s", s.ID)

	go h.writePump(conn, ch)
	go h.readPump(conn, s.ID, ch)
}

// readPump discards client frames and keeps the pong deadline alive. Its exit
// releases the subscription, which in turn stops writePump.
func (h *SessionHandler) readPump(conn *websocket.Conn, id uuid.UUID, ch chan session.Event) {
	defer func() {
		h.server.sessions.Release(id, ch)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Events] %s: %v", id, err)
			}
			return
		}
	}
}

func (h *SessionHandler) writePump(conn *websocket.Conn, ch chan session.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
