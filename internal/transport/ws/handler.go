package ws

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/vedran77/statusd/internal/logger"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket and subscribes
// the connection to the status feed. The pumps outlive the request, so they
// run on ctx rather than the request context.
func ServeWS(ctx context.Context, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // the feed is public; any origin may read it
		})
		if err != nil {
			hub.logger.Warn("ws: accept error", logger.Error(err))
			return
		}

		client := NewClient(hub, conn)
		if !hub.join(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		go client.WritePump(ctx)
		go client.ReadPump(ctx)
	}
}
