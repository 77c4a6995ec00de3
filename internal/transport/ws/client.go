package ws

import (
	"context"
	"encoding/json"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vedran77/statusd/internal/idgen"
	"github.com/vedran77/statusd/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	logger logger.Logger

	// send is owned by the hub loop, which closes it when the client is
	// dropped. Replies to the client are routed through Hub.reply.
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := idgen.New()
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		logger: hub.logger.With(logger.String("client_id", id)),
		send:   make(chan []byte, sendBufSize),
	}
}

// ReadPump reads client messages until the connection fails, then
// unregisters from the hub.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.logger.Debug("ws: client closed connection")
			} else {
				c.logger.Debug("ws: read error", logger.Error(err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events to the connection and keeps it alive with
// pings. It returns once the hub closes the send channel.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusGoingAway, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug("ws: write error", logger.Error(err))
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debug("ws: ping error", logger.Error(err))
				return
			}
		}
	}
}

// handleEvent routes an incoming client event. The feed is read-only, so
// only keepalives are accepted.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong, Timestamp: time.Now().Unix()})
	c.hub.reply(c, data)
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.hub.reply(c, data)
}
