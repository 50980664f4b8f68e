package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

// getConnsByRoomID resolves the live connections of a room's members.
// Members without a live connection are skipped: a dangling member entry
// must not break broadcasts to the rest of the room.
func (s service) getConnsByRoomID(ctx context.Context, roomID string) ([]*websocket.Conn, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	conns := make([]*websocket.Conn, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		conn, err := s.connRepo.GetConn(memberID)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping member without connection", "client_id", memberID)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s service) getMemberList(ctx context.Context, roomID string) ([]Member, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]Member, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
			ClientID: memberID,
			RoomID:   roomID,
		})
		if err != nil {
			if errors.Is(err, room.ErrMemberNotFound) {
				continue
			}

			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		members = append(members, Member{
			ID:            memberID,
			Nickname:      member.Nickname,
			EstimatedTime: member.EstimatedTime,
			RTT:           member.RTT,
			Downlink:      member.Downlink,
			EffectiveType: member.EffectiveType,
		})
	}

	return members, nil
}

func (s service) getMedia(ctx context.Context, roomID string) (*Media, error) {
	media, err := s.roomRepo.GetMedia(ctx, roomID)
	if err != nil {
		if errors.Is(err, room.ErrMediaNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &Media{
		Type:      media.Type,
		ID:        media.ID,
		Season:    media.Season,
		Episode:   media.Episode,
		StartAt:   media.StartAt,
		Theme:     media.Theme,
		UpdatedAt: media.UpdatedAt,
	}, nil
}
