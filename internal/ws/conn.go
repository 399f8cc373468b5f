package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rpnow/rpnow2/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket subscriber of a room's event stream. The
// stream is delivery-only; mutations go through the REST API.
type Client struct {
	room *roomHub
	conn *websocket.Conn
	send chan []byte

	// ID lets a client recognize events it caused itself.
	ID string
}

// Serve upgrades the request and subscribes it to the room's events
// until the connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, roomCode string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	rh := h.room(roomCode)
	client := &Client{
		room: rh,
		conn: conn,
		send: make(chan []byte, 256),
		ID:   uuid.NewString(),
	}
	rh.register <- client
	metrics.WSConnections.Inc()

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.room.unregister <- c
		_ = c.conn.Close()
		metrics.WSConnections.Dec()
	}()
	c.conn.SetReadLimit(1 << 12)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// Inbound frames are not meaningful on this stream; reading
		// only services control frames and detects the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
