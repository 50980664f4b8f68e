package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// room
	mux.Handle("join", c.handleJoin)

	// playback, host-only
	mux.Handle("play", c.playbackHandler(room.PlaybackPlay))
	mux.Handle("pause", c.playbackHandler(room.PlaybackPause))
	mux.Handle("seek", c.playbackHandler(room.PlaybackSeek))
	mux.Handle("set-media", c.handleSetMedia)

	// presence
	mux.Handle("status-update", c.handleStatusUpdate)
	mux.Handle("ping-check", c.handlePingCheck)

	// resync
	mux.Handle("sync-response", c.handleSyncResponse)

	// chat
	mux.Handle("chat", c.handleChat)

	mux.OnError(func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.WarnContext(ctx, "failed to handle message",
			"type", wsrouter.GetMessageTypeFromCtx(ctx), "error", err)
	})

	return mux
}
