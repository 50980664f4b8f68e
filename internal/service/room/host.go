package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchlock/server/internal/repository/room"
)

// electHost is the single place host election happens. The previous host is
// kept while it is still a member; otherwise the longest-standing member
// takes over (memberIDs is in join order). An empty room has no host.
func electHost(memberIDs []string, previous string) string {
	for _, id := range memberIDs {
		if id == previous {
			return previous
		}
	}

	if len(memberIDs) > 0 {
		return memberIDs[0]
	}

	return ""
}

// reelectHost re-derives the host pointer after a membership change and
// persists it if it changed. Returns the current host id.
func (s service) reelectHost(ctx context.Context, roomID string) (string, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("failed to get member ids: %w", err)
	}

	previous, err := s.roomRepo.GetHost(ctx, roomID)
	if err != nil && !errors.Is(err, room.ErrHostNotFound) {
		return "", fmt.Errorf("failed to get host: %w", err)
	}

	hostID := electHost(memberIDs, previous)
	if hostID == previous {
		return hostID, nil
	}

	if hostID == "" {
		if err := s.roomRepo.RemoveHost(ctx, roomID); err != nil {
			return "", fmt.Errorf("failed to remove host: %w", err)
		}

		return "", nil
	}

	if err := s.roomRepo.SetHost(ctx, roomID, hostID); err != nil {
		return "", fmt.Errorf("failed to set host: %w", err)
	}

	return hostID, nil
}

func (s service) checkIfHost(ctx context.Context, roomID, clientID string) error {
	hostID, err := s.roomRepo.GetHost(ctx, roomID)
	if err != nil {
		if errors.Is(err, room.ErrHostNotFound) {
			return ErrPermissionDenied
		}

		return fmt.Errorf("failed to get host: %w", err)
	}

	if hostID != clientID {
		return ErrPermissionDenied
	}

	return nil
}
