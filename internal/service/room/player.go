package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

type PlaybackEventKind string

const (
	PlaybackPlay  PlaybackEventKind = "play"
	PlaybackPause PlaybackEventKind = "pause"
	PlaybackSeek  PlaybackEventKind = "seek"
)

type UpdatePlaybackParams struct {
	RoomID      string
	SenderID    string
	Kind        PlaybackEventKind
	CurrentTime float64
	// Timestamp is the sender's wall clock in unix millis. Zero or negative
	// means unknown and is replaced with the receipt time.
	Timestamp int64
}

type UpdatePlaybackResponse struct {
	Playback Playback
	Conns    []*websocket.Conn
}

// UpdatePlayback applies a host-issued play, pause or seek to the room's
// authoritative record. Play and pause set the playing flag, seek leaves it
// untouched. emit runs inside the room's critical section.
func (s service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams, emit func(UpdatePlaybackResponse)) error {
	s.rooms.Lock(params.RoomID)
	defer s.rooms.Unlock(params.RoomID)

	if err := s.checkIfHost(ctx, params.RoomID, params.SenderID); err != nil {
		return err
	}

	playback, err := s.roomRepo.GetPlayback(ctx, params.RoomID)
	if err != nil {
		return fmt.Errorf("failed to get playback: %w", err)
	}

	isPlaying := playback.IsPlaying
	switch params.Kind {
	case PlaybackPlay:
		isPlaying = true
	case PlaybackPause:
		isPlaying = false
	case PlaybackSeek:
	default:
		return fmt.Errorf("unknown playback event kind %q", params.Kind)
	}

	updatedAt := params.Timestamp
	if updatedAt <= 0 {
		updatedAt = s.now().UnixMilli()
	}

	if err := s.roomRepo.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying:   isPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   updatedAt,
		RoomID:      params.RoomID,
	}); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return err
	}

	if emit != nil {
		emit(UpdatePlaybackResponse{
			Playback: Playback{
				IsPlaying:   isPlaying,
				CurrentTime: params.CurrentTime,
				UpdatedAt:   updatedAt,
			},
			Conns: conns,
		})
	}

	return nil
}

type SetMediaParams struct {
	RoomID   string
	SenderID string
	Media    Media
}

type SetMediaResponse struct {
	Media Media
	Conns []*websocket.Conn
}

// SetMedia replaces the room's media selection wholesale with a server-side
// timestamp. Host-only. emit runs inside the room's critical section.
func (s service) SetMedia(ctx context.Context, params *SetMediaParams, emit func(SetMediaResponse)) error {
	s.rooms.Lock(params.RoomID)
	defer s.rooms.Unlock(params.RoomID)

	if err := s.checkIfHost(ctx, params.RoomID, params.SenderID); err != nil {
		return err
	}

	media := params.Media
	media.UpdatedAt = s.now().UnixMilli()

	if err := s.roomRepo.SetMedia(ctx, &room.SetMediaParams{
		Media: room.Media{
			Type:      media.Type,
			ID:        media.ID,
			Season:    media.Season,
			Episode:   media.Episode,
			StartAt:   media.StartAt,
			Theme:     media.Theme,
			UpdatedAt: media.UpdatedAt,
		},
		RoomID: params.RoomID,
	}); err != nil {
		return fmt.Errorf("failed to set media: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return err
	}

	if emit != nil {
		emit(SetMediaResponse{
			Media: media,
			Conns: conns,
		})
	}

	return nil
}
