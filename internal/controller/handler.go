package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/ctxlogger"
)

// serveWS upgrades the connection, assigns it an ephemeral client id and
// serves messages until the connection drops. The id lives exactly as long
// as the connection.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	clientID := uuid.NewString()

	if err := c.roomService.ConnectClient(conn, clientID); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect client", "error", err)
		conn.Close()
		return
	}

	ctx := context.WithValue(r.Context(), clientIDCtxKey, clientID)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("client_id", clientID))

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	c.disconnect(ctx, conn, clientID)
}

// disconnect is the implicit leave for every room the connection was a
// member of. It triggers host failover and a member-list broadcast per room.
func (c *controller) disconnect(ctx context.Context, conn *websocket.Conn, clientID string) {
	defer c.dropConn(conn)

	err := c.roomService.DisconnectClient(ctx, clientID, func(update room.RoomUpdate) {
		c.broadcast(ctx, update.Conns, &Output{
			Type: "user-list",
			Payload: map[string]any{
				"users":   update.Members,
				"host_id": update.HostID,
			},
		})
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect client", "error", err)
	}
}
