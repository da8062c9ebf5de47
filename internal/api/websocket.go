package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/clanktank/judge-engine/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // prize-pool dashboard is served from a different origin than the API
	},
}

// Hub maintains the set of prize-pool stream subscribers and broadcasts
// snapshot updates to all of them. Per §4.10, every subscriber receives
// the full snapshot on connect and on every subsequent change — there is
// no incremental-delta protocol.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans each snapshot out to every
// connected subscriber. A subscriber whose write fails or times out is
// dropped rather than allowed to block the rest of the fan-out.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("prizepool: websocket write error, dropping subscriber: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the connection and registers it for snapshot
// broadcasts. When initial is non-nil it is written immediately — the
// current prize-pool snapshot, so a new subscriber doesn't wait for the
// next on-chain event to see where the pool stands.
func (h *Hub) Subscribe(c *gin.Context, initial []byte) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("prizepool: failed to upgrade websocket: %v", err)
		return
	}

	if initial != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			log.Printf("prizepool: failed to send initial snapshot: %v", err)
			conn.Close()
			return
		}
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
	metrics.PrizePoolSubscribers.Inc()

	log.Printf("prizepool: subscriber connected, total=%d", len(h.clients))

	// The hub only ever pushes snapshots down; this loop exists purely to
	// detect the client going away (browsers don't send anything back).
	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			metrics.PrizePoolSubscribers.Dec()
			conn.Close()
			log.Printf("prizepool: subscriber disconnected, total=%d", len(h.clients))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("prizepool: websocket read error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast sends a full snapshot to every connected subscriber.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}
