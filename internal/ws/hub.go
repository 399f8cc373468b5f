// Package ws delivers room change events to connected clients over
// websockets. The Hub implements notify.Notifier so the pipelines push
// into it like any other subscriber.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rpnow/rpnow2/internal/notify"
)

// Hub manages per-room sub-hubs, created lazily.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*roomHub
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{rooms: make(map[string]*roomHub), logger: logger}
}

// Emit implements notify.Notifier. Events for rooms with no connected
// clients are dropped.
func (h *Hub) Emit(ctx context.Context, ev notify.Event) {
	h.mu.RLock()
	room := h.rooms[ev.RoomCode]
	h.mu.RUnlock()
	if room == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", ev.Kind).Msg("failed to encode event")
		return
	}

	select {
	case room.broadcast <- payload:
	default:
		h.logger.Warn().Str("rp_code", ev.RoomCode).Msg("dropping event, broadcast queue full")
	}
}

// room returns the sub-hub for a room, creating and starting it on
// first use.
func (h *Hub) room(code string) *roomHub {
	h.mu.RLock()
	room := h.rooms[code]
	h.mu.RUnlock()
	if room != nil {
		return room
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	room = h.rooms[code]
	if room != nil {
		return room
	}
	room = newRoomHub(code)
	h.rooms[code] = room
	go room.run()
	return room
}

// Online returns the number of clients connected to a room.
func (h *Hub) Online(code string) int {
	h.mu.RLock()
	room := h.rooms[code]
	h.mu.RUnlock()
	if room == nil {
		return 0
	}
	return room.online()
}

type roomHub struct {
	code       string
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	countMu sync.Mutex
	count   int
}

func newRoomHub(code string) *roomHub {
	return &roomHub{
		code:       code,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (rh *roomHub) run() {
	for {
		select {
		case c := <-rh.register:
			rh.clients[c] = true
			rh.setCount(len(rh.clients))
		case c := <-rh.unregister:
			if _, ok := rh.clients[c]; ok {
				delete(rh.clients, c)
				close(c.send)
				rh.setCount(len(rh.clients))
			}
		case msg := <-rh.broadcast:
			for c := range rh.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall the room.
					close(c.send)
					delete(rh.clients, c)
					rh.setCount(len(rh.clients))
				}
			}
		}
	}
}

func (rh *roomHub) setCount(n int) {
	rh.countMu.Lock()
	rh.count = n
	rh.countMu.Unlock()
}

func (rh *roomHub) online() int {
	rh.countMu.Lock()
	defer rh.countMu.Unlock()
	return rh.count
}
