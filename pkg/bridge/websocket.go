package bridge

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket serves /ws: every status line is sent to every client as a text
// message, and text messages from clients are treated as commands.
type WebSocket struct {
	upgrader websocket.Upgrader
	commands CommandFunc

	lock    sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewWebSocket(commands CommandFunc) *WebSocket {
	return &WebSocket{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		commands: commands,
		clients:  map[*websocket.Conn]bool{},
	}
}

func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ws.lock.Lock()
	ws.clients[conn] = true
	ws.lock.Unlock()
	log.Info().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			ws.lock.Lock()
			delete(ws.clients, conn)
			ws.lock.Unlock()
			return
		}
		if kind == websocket.TextMessage && len(msg) > 0 {
			ws.commands(msg)
		}
	}
}

// Broadcast sends a status line to every connected client, dropping clients
// that fail.
func (ws *WebSocket) Broadcast(line string) {
	ws.lock.Lock()
	defer ws.lock.Unlock()
	for conn := range ws.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			log.Warn().Err(err).Msg("WebSocket write failed")
			conn.Close()
			delete(ws.clients, conn)
		}
	}
}

func (ws *WebSocket) Clients() int {
	ws.lock.Lock()
	defer ws.lock.Unlock()
	return len(ws.clients)
}
