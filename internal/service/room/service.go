package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
	"github.com/watchlock/server/pkg/keymutex"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomNotFound     = errors.New("room not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrTargetNotFound   = errors.New("target not found")
)

type iRoomRepo interface {
	// playback
	EnsurePlayback(context.Context, *room.EnsurePlaybackParams) error
	GetPlayback(context.Context, string) (room.Playback, error)
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) error
	// media
	SetMedia(context.Context, *room.SetMediaParams) error
	GetMedia(context.Context, string) (room.Media, error)
	// host
	SetHost(ctx context.Context, roomID, clientID string) error
	GetHost(context.Context, string) (string, error)
	RemoveHost(context.Context, string) error
	// member
	AddMember(context.Context, *room.AddMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	GetMemberIDs(context.Context, string) ([]string, error)
	UpdateMemberStats(context.Context, *room.UpdateMemberStatsParams) error
	GetClientRooms(context.Context, string) ([]string, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByClientID(string) error
	GetConn(string) (*websocket.Conn, error)
}

type service struct {
	roomRepo iRoomRepo
	connRepo iConnRepo
	rooms    *keymutex.KeyMutex
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, logger *slog.Logger) *service {
	return &service{
		roomRepo: roomRepo,
		connRepo: connRepo,
		rooms:    keymutex.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s service) ConnectClient(conn *websocket.Conn, clientID string) error {
	return s.connRepo.Add(conn, clientID)
}
