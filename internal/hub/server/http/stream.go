package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboards are served from other origins; access control happens at
	// the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and follows the fanout bus, relaying
// every vehicle update as a JSON text message until the client goes away or
// the hub shuts down.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(err, "Failed to upgrade stream connection", "remote", r.RemoteAddr)
		return
	}

	session := s.fanout.Subscribe()
	defer s.fanout.Unsubscribe(session)

	log.Debug("Stream session opened", "remote", r.RemoteAddr)

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces close frames and feeds the pong handler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case update, ok := <-session.Updates():
			if !ok {
				// Bus shut down.
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				log.Debug("Stream session write failed", "remote", r.RemoteAddr, "err", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
