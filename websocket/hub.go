package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	EventRevenuePosted = "revenue.posted"
	EventPayoutMarked  = "payout.marked"
)

// Event is a live ledger notification pushed to dashboards: the affected
// teacher sees it, and so does every connected admin.
type Event struct {
	Type        string    `json:"type"`
	TeacherID   uuid.UUID `json:"teacher_id"`
	YearMonth   string    `json:"year_month"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Client struct {
	UserID  uuid.UUID
	IsAdmin bool
	Conn    *websocket.Conn
}

var clients = make(map[uuid.UUID]*Client)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan Event, 16)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Dashboard client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Dashboard client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if existing, ok := clients[client.UserID]; ok && existing.Conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case event := <-Broadcast:
			deliver(event)
		}
	}
}

func deliver(event Event) {
	clientsMu.RLock()
	var stale []uuid.UUID
	for userID, client := range clients {
		if userID != event.TeacherID && !client.IsAdmin {
			continue
		}
		if err := client.Conn.WriteJSON(event); err != nil {
			log.Printf("Error pushing event to client %s: %v", userID, err)
			client.Conn.Close()
			stale = append(stale, userID)
		}
	}
	clientsMu.RUnlock()

	if len(stale) > 0 {
		clientsMu.Lock()
		for _, userID := range stale {
			delete(clients, userID)
		}
		clientsMu.Unlock()
	}
}

// Publish hands an event to the hub without blocking the caller; if the hub
// is backed up the event is dropped, dashboards are not a system of record.
func Publish(event Event) {
	event.OccurredAt = time.Now()
	select {
	case Broadcast <- event:
	default:
		log.Println("⚠️ Dashboard event dropped: hub queue full")
	}
}
