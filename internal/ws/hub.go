// Package ws pushes clinic events to WebSocket clients.
//
// The [Hub] keeps the set of connected clients, receives events from the
// clinic through the clinic.Observer interface and broadcasts them to every
// client. A client that cannot keep up is disconnected instead of slowing the
// doctors down.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// broadcastBuffer bounds the events waiting for the hub loop.
	broadcastBuffer = 256

	// sendBuffer bounds the events waiting for a single client.
	sendBuffer = 256
)

// Event is the JSON message sent to clients.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	Doctor  string    `json:"doctor,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Client is a single WebSocket connection.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub manages every client connection.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger    zerolog.Logger
	dropped   atomic.Uint64
	connected atomic.Int64
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "ws").Logger(),
	}
}

// Run serves register, unregister and broadcast requests until the context
// is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.logger.Debug().Int("clients", len(h.clients)).Msg("client registered")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.connected.Store(int64(len(h.clients)))
				h.logger.Debug().Int("clients", len(h.clients)).Msg("client unregistered")
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn().Msg("dropping slow client")
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.connected.Store(int64(len(h.clients)))
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.connected.Store(0)
			return nil
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Dropped returns the number of events discarded because the hub loop was
// not keeping up.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) OnStatusChange(doctor, status string) {
	h.publish(Event{Type: "status", Doctor: doctor, Status: status})
}

func (h *Hub) OnLog(message string) {
	h.publish(Event{Type: "log", Message: message})
}

// publish never blocks the caller. Events that do not fit in the broadcast
// buffer are dropped.
func (h *Hub) publish(e Event) {
	e.ID = uuid.New()
	e.At = time.Now()

	b, err := json.Marshal(e)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- b:
	default:
		if n := h.dropped.Add(1); n%100 == 1 {
			h.logger.Warn().Uint64("dropped", n).Msg("broadcast buffer full, dropping events")
		}
	}
}
