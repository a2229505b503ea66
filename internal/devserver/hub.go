package devserver

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cyboxchat/cybox-client-go/pkg/logger"
)

// Version is the protocol server version reported in status frames.
const Version = "0.3.0-dev"

// Hub tracks connected clients and fans chat traffic out to all of
// them. All client bookkeeping happens inside Run; other goroutines
// interact with the hub through its channels only.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte
	listUsers  chan chan []userEntry

	clients map[*Client]bool
	log     *logger.Logger

	startTime        time.Time
	userCount        atomic.Int64
	peakUsers        atomic.Int64
	connectionsTotal atomic.Uint64
	messagesSent     atomic.Uint64
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte),
		listUsers:  make(chan chan []userEntry),
		clients:    make(map[*Client]bool),
		log:        log,
		startTime:  time.Now(),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.connectionsTotal.Add(1)
			n := int64(len(h.clients))
			h.userCount.Store(n)
			if n > h.peakUsers.Load() {
				h.peakUsers.Store(n)
			}
			h.log.Info("client %s connected from %s (%d online)", client.id, client.ip, n)
			h.broadcastToAll(marshalFrame(systemFrame{
				Type: "system",
				Text: fmt.Sprintf("%s joined the chat", client.DisplayName()),
				At:   nowMillis(),
			}))

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.userCount.Store(int64(len(h.clients)))
				h.log.Info("client %s disconnected (%d online)", client.id, len(h.clients))
				h.broadcastToAll(marshalFrame(systemFrame{
					Type: "system",
					Text: fmt.Sprintf("%s left the chat", client.DisplayName()),
					At:   nowMillis(),
				}))
			}

		case message := <-h.Broadcast:
			h.broadcastToAll(message)

		case reply := <-h.listUsers:
			users := make([]userEntry, 0, len(h.clients))
			for client := range h.clients {
				users = append(users, userEntry{ID: client.id, Name: client.DisplayName(), IP: client.ip})
			}
			reply <- users
		}
	}
}

func (h *Hub) broadcastToAll(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.userCount.Store(int64(len(h.clients)))
		}
	}
}

// Users returns a snapshot of the connected users.
func (h *Hub) Users() []userEntry {
	reply := make(chan []userEntry, 1)
	h.listUsers <- reply
	return <-reply
}

// Status assembles the server status card.
func (h *Hub) Status() statusFrame {
	uptime := uint64(time.Since(h.startTime) / time.Second)
	sent := h.messagesSent.Load()
	perSecond := 0.0
	if uptime > 0 {
		perSecond = float64(sent) / float64(uptime)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return statusFrame{
		Type:              "status",
		Version:           Version,
		OS:                runtime.GOOS,
		CPUCores:          runtime.NumCPU(),
		UptimeSeconds:     uptime,
		UserCount:         int(h.userCount.Load()),
		PeakUsers:         int(h.peakUsers.Load()),
		ConnectionsTotal:  h.connectionsTotal.Load(),
		MessagesSent:      sent,
		MessagesPerSecond: perSecond,
		MemoryMB:          float64(mem.Alloc) / (1024 * 1024),
		AIEnabled:         false,
		At:                nowMillis(),
	}
}
