package devserver

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cyboxchat/cybox-client-go/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dev server is a local testing tool; accept any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Client is one connected chat participant.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *logger.Logger

	id   string
	name string
	ip   string
}

// DisplayName returns the chosen name, or a guest handle derived from
// the connection id.
func (c *Client) DisplayName() string {
	if c.name != "" {
		return c.name
	}
	return "Guest-" + c.id[:8]
}

// ServeWS upgrades an HTTP request and runs the client pumps.
func ServeWS(hub *Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("upgrade failed: %v", err)
			return
		}

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, sendBufferSize),
			log:  log,
			id:   uuid.NewString(),
			ip:   ip,
		}

		hub.Register <- client
		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("client %s read error: %v", c.id, err)
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one client command and answers it. Unknown or
// invalid input answers with a protocol error frame; it never kills the
// connection.
func (c *Client) handleFrame(data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.reply(marshalFrame(errorFrame{Type: "error", Message: "Invalid JSON.", At: nowMillis()}))
		return
	}

	switch frame.Type {
	case "chat":
		if frame.Text == "" {
			c.reply(marshalFrame(errorFrame{Type: "error", Message: "Empty chat message.", At: nowMillis()}))
			return
		}
		c.hub.messagesSent.Add(1)
		c.hub.Broadcast <- marshalFrame(chatFrame{
			Type: "chat",
			From: c.DisplayName(),
			Text: frame.Text,
			At:   nowMillis(),
		})

	case "setName":
		if !validDisplayName(frame.Name) {
			c.reply(marshalFrame(errorFrame{
				Type:    "error",
				Message: "Invalid name: 2-32 characters, letters, digits, spaces, - and _ only.",
				At:      nowMillis(),
			}))
			return
		}
		old := c.DisplayName()
		c.name = frame.Name
		c.reply(marshalFrame(ackNameFrame{Type: "ackName", Name: frame.Name, At: nowMillis()}))
		c.hub.Broadcast <- marshalFrame(systemFrame{
			Type: "system",
			Text: fmt.Sprintf("%s is now known as %s", old, frame.Name),
			At:   nowMillis(),
		})

	case "status":
		c.reply(marshalFrame(c.hub.Status()))

	case "listUsers":
		c.reply(marshalFrame(userListFrame{Type: "listUsers", Users: c.hub.Users(), At: nowMillis()}))

	case "ping":
		pong := pongFrame{Type: "pong", At: nowMillis()}
		if frame.Token != "" {
			token := frame.Token
			pong.Token = &token
		}
		c.reply(marshalFrame(pong))

	case "ai":
		c.reply(marshalFrame(errorFrame{
			Type:    "error",
			Message: "AI is not enabled on this server.",
			At:      nowMillis(),
		}))

	default:
		c.reply(marshalFrame(errorFrame{
			Type:    "error",
			Message: fmt.Sprintf("Unknown message type: %s", frame.Type),
			At:      nowMillis(),
		}))
	}
}

func (c *Client) reply(message []byte) {
	select {
	case c.send <- message:
	default:
		c.log.Debug("client %s send buffer full, dropping frame", c.id)
	}
}
