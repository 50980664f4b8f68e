package controller

import (
	"context"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// writeToConn goes through the router's per-conn write mutex, so handler
// replies never race the router's own writes on the same connection.
func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, out *Output) error {
	return c.wsmux.WriteJSON(conn, out)
}

// broadcast fans out to every connection, logging per-conn write failures
// instead of aborting: one slow or dead subscriber must not starve the rest
// of the room.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, out *Output) {
	for _, conn := range conns {
		if err := c.writeToConn(ctx, conn, out); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "type", out.Type, "error", err)
		}
	}
}

func (c *controller) dropConn(conn *websocket.Conn) {
	c.wsmux.DropConn(conn)
}
