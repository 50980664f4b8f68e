package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getHostKey(roomID string) string {
	return "room:" + roomID + ":host"
}

func (r repo) SetHost(ctx context.Context, roomID, clientID string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id":   roomID,
		"client_id": clientID,
	})
	hostKey := r.getHostKey(roomID)
	if err := r.rc.Set(ctx, hostKey, clientID, r.expireDuration).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetHost(ctx context.Context, roomID string) (string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomID})
	hostKey := r.getHostKey(roomID)
	hostID, err := r.rc.Get(ctx, hostKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", room.ErrHostNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", err
	}

	r.rc.Expire(ctx, hostKey, r.expireDuration)

	return hostID, nil
}

func (r repo) RemoveHost(ctx context.Context, roomID string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomID})
	if err := r.rc.Del(ctx, r.getHostKey(roomID)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
