package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/validator"
	"github.com/watchlock/server/pkg/wsrouter"
)

type iRoomService interface {
	ConnectClient(*websocket.Conn, string) error
	JoinRoom(context.Context, *room.JoinRoomParams, func(room.JoinRoomResponse)) error
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams, func(room.UpdatePlaybackResponse)) error
	SetMedia(context.Context, *room.SetMediaParams, func(room.SetMediaResponse)) error
	UpdateStatus(context.Context, *room.UpdateStatusParams, func(room.UpdateStatusResponse)) error
	ResolveSyncTarget(ctx context.Context, roomID, targetID string) (*websocket.Conn, error)
	RoomConns(ctx context.Context, roomID string, emit func([]*websocket.Conn)) error
	DisconnectClient(ctx context.Context, clientID string, emit func(room.RoomUpdate)) error
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.New(),
		logger:      logger,
	}

	c.wsmux = c.getWSRouter()

	return &c
}
