package redis

import (
	"context"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getPlaybackKey(roomID string) string {
	return "room:" + roomID + ":playback"
}

// EnsurePlayback creates the room's playback record with defaults if it does
// not exist yet. Existing state is left untouched, so it never fails on a
// known room.
func (r repo) EnsurePlayback(ctx context.Context, params *room.EnsurePlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	playbackKey := r.getPlaybackKey(params.RoomID)

	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to check if playback exists: %w", err)
	}

	if cmd.Val() > 0 {
		r.rc.Expire(ctx, playbackKey, r.expireDuration)
		return nil
	}

	pipe := r.rc.TxPipeline()
	playback := room.Playback{
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   0,
	}
	r.HSetStruct(ctx, pipe, playbackKey, playback)
	pipe.Expire(ctx, playbackKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, roomID string) (room.Playback, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomID})
	playbackKey := r.getPlaybackKey(roomID)

	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Playback{}, err
	}

	if cmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrPlaybackNotFound)
		return room.Playback{}, room.ErrPlaybackNotFound
	}

	var playback room.Playback
	if err := r.rc.HGetAll(ctx, playbackKey).Scan(&playback); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	r.rc.Expire(ctx, playbackKey, r.expireDuration)

	return playback, nil
}

func (r repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	playbackKey := r.getPlaybackKey(params.RoomID)

	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if cmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrPlaybackNotFound)
		return room.ErrPlaybackNotFound
	}

	if err := r.rc.HSet(ctx, playbackKey,
		"is_playing", params.IsPlaying,
		"current_time", params.CurrentTime,
		"updated_at", params.UpdatedAt,
	).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, playbackKey, r.expireDuration)

	return nil
}
