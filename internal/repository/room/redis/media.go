package redis

import (
	"context"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getMediaKey(roomID string) string {
	return "room:" + roomID + ":media"
}

// SetMedia replaces the room's media record wholesale.
func (r repo) SetMedia(ctx context.Context, params *room.SetMediaParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	mediaKey := r.getMediaKey(params.RoomID)

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, mediaKey)
	r.HSetStruct(ctx, pipe, mediaKey, params.Media)
	pipe.Expire(ctx, mediaKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set media: %w", err)
	}

	return nil
}

func (r repo) GetMedia(ctx context.Context, roomID string) (room.Media, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomID})
	mediaKey := r.getMediaKey(roomID)

	cmd := r.rc.Exists(ctx, mediaKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Media{}, err
	}

	if cmd.Val() == 0 {
		return room.Media{}, room.ErrMediaNotFound
	}

	var media room.Media
	if err := r.rc.HGetAll(ctx, mediaKey).Scan(&media); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Media{}, fmt.Errorf("failed to get media: %w", err)
	}

	r.rc.Expire(ctx, mediaKey, r.expireDuration)

	return media, nil
}
