package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// ResolveSyncTarget returns the connection a sync-response should be
// forwarded to. Point-to-point: the state is never broadcast.
func (s service) ResolveSyncTarget(ctx context.Context, roomID, targetID string) (*websocket.Conn, error) {
	conn, err := s.connRepo.GetConn(targetID)
	if err != nil {
		return nil, ErrTargetNotFound
	}

	return conn, nil
}

// RoomConns resolves the live connections of a room, used for chat fan-out.
// emit runs inside the room's critical section so the fan-out keeps the
// room's processing order.
func (s service) RoomConns(ctx context.Context, roomID string, emit func([]*websocket.Conn)) error {
	s.rooms.Lock(roomID)
	defer s.rooms.Unlock(roomID)

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get conns: %w", err)
	}

	if emit != nil {
		emit(conns)
	}

	return nil
}
