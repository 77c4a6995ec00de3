package ws

import (
	"context"
	"sync/atomic"

	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/metrics"
)

const broadcastBufSize = 256

type reply struct {
	client *Client
	data   []byte
}

// Hub manages all active WebSocket clients and fans events out to them.
type Hub struct {
	clients map[*Client]struct{}
	count   atomic.Int64

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	replies    chan reply
	done       chan struct{}

	logger  logger.Logger
	metrics *metrics.Metrics
}

func NewHub(log logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBufSize),
		replies:    make(chan reply),
		done:       make(chan struct{}),
		logger:     log,
		metrics:    m,
	}
}

// Run is the hub's event loop. It returns when ctx is canceled, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.disconnectAll()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.updateCount()
			h.logger.Debug("ws hub: client connected",
				logger.String("client_id", client.id),
				logger.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("ws hub: client disconnected",
					logger.String("client_id", client.id),
					logger.Int("total", len(h.clients)))
			}

		case rep := <-h.replies:
			if _, ok := h.clients[rep.client]; ok {
				select {
				case rep.client.send <- rep.data:
				default:
				}
			}

		case data := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client buffer full - disconnect
					h.logger.Warn("ws hub: dropping slow client", logger.String("client_id", client.id))
					h.drop(client)
				}
			}
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("ws hub: broadcast queue full, event dropped")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// join registers client unless the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// reply queues data for a single client.
func (h *Hub) reply(client *Client, data []byte) {
	select {
	case h.replies <- reply{client: client, data: data}:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.updateCount()
}

func (h *Hub) disconnectAll() {
	for client := range h.clients {
		h.drop(client)
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	h.metrics.StreamClients(len(h.clients))
}
