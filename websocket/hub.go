package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/marketformation/mf-backend/models"
)

type Client struct {
	TrainerID string
	Conn      *websocket.Conn
}

// Hub pushes new ledger entries to connected trainer dashboards. It is
// constructed in main and passed to the handlers that produce events.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string][]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	events     chan *models.PayoutsHistory
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *models.PayoutsHistory, 16),
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Publish never blocks the caller; a full event buffer drops the push, the
// dashboard refetches on reconnect anyway.
func (h *Hub) Publish(entry *models.PayoutsHistory) {
	select {
	case h.events <- entry:
	default:
		log.Printf("Payout event buffer full, dropping push for trainer %s", entry.TrainerID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			log.Printf("Dashboard connected for trainer %s", client.TrainerID)
			h.mu.Lock()
			h.clients[client.TrainerID] = append(h.clients[client.TrainerID], client.Conn)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			conns := h.clients[client.TrainerID]
			for i, conn := range conns {
				if conn == client.Conn {
					h.clients[client.TrainerID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.clients[client.TrainerID]) == 0 {
				delete(h.clients, client.TrainerID)
			}
			h.mu.Unlock()

		case entry := <-h.events:
			h.mu.RLock()
			conns := append([]*websocket.Conn(nil), h.clients[entry.TrainerID]...)
			h.mu.RUnlock()

			for _, conn := range conns {
				if err := conn.WriteJSON(entry); err != nil {
					log.Printf("Error pushing payout event to trainer %s: %v", entry.TrainerID, err)
					conn.Close()
				}
			}
		}
	}
}
