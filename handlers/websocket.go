package handlers

import (
	"log"
	"net/http"

	"github.com/4cecoder/snakeserver/transport"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: false, // payloads are encrypted, compression gains nothing
}

// HandleWebSocket runs a normal game session over a websocket. The handshake
// and frames travel as binary messages.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Error upgrading to WebSocket:", err)
		return
	}
	remote := r.RemoteAddr
	if !s.allow(remote) {
		log.Printf("[SESSION] rejecting websocket %s: too many connections", remote)
		ws.Close()
		return
	}
	s.handleConn(transport.NewWebSocketConn(ws), remote)
}
