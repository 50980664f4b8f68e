package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/room"
)

type JoinRoomParams struct {
	RoomID   string
	ClientID string
	Nickname string
}

type JoinRoomResponse struct {
	Room    RoomState
	Members []Member
	HostID  string
	Conns   []*websocket.Conn
	// HostConn is the host's connection when the joiner is not the host,
	// used to request a precise sync on the joiner's behalf.
	HostConn *websocket.Conn
}

// JoinRoom registers the client as a member of the room, creating the room
// lazily on first join. The first joiner becomes host. emit is invoked with
// the result while the room's lock is still held, so the caller's writes
// keep the room's processing order.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams, emit func(JoinRoomResponse)) error {
	s.rooms.Lock(params.RoomID)
	defer s.rooms.Unlock(params.RoomID)

	if err := s.roomRepo.EnsurePlayback(ctx, &room.EnsurePlaybackParams{RoomID: params.RoomID}); err != nil {
		return fmt.Errorf("failed to ensure playback: %w", err)
	}

	nickname := params.Nickname
	if nickname == "" {
		nickname = "Anon"
	}

	if err := s.roomRepo.AddMember(ctx, &room.AddMemberParams{
		ClientID: params.ClientID,
		Nickname: nickname,
		RoomID:   params.RoomID,
	}); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	hostID, err := s.reelectHost(ctx, params.RoomID)
	if err != nil {
		return fmt.Errorf("failed to elect host: %w", err)
	}

	playback, err := s.roomRepo.GetPlayback(ctx, params.RoomID)
	if err != nil {
		return fmt.Errorf("failed to get playback: %w", err)
	}

	media, err := s.getMedia(ctx, params.RoomID)
	if err != nil {
		return err
	}

	members, err := s.getMemberList(ctx, params.RoomID)
	if err != nil {
		return err
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return err
	}

	var hostConn *websocket.Conn
	if hostID != "" && hostID != params.ClientID {
		if conn, err := s.connRepo.GetConn(hostID); err == nil {
			hostConn = conn
		}
	}

	if emit != nil {
		emit(JoinRoomResponse{
			Room: RoomState{
				IsPlaying:   playback.IsPlaying,
				CurrentTime: playback.CurrentTime,
				UpdatedAt:   playback.UpdatedAt,
				HostID:      hostID,
				Users:       members,
				Media:       media,
			},
			Members:  members,
			HostID:   hostID,
			Conns:    conns,
			HostConn: hostConn,
		})
	}

	return nil
}

type UpdateStatusParams struct {
	RoomID        string
	SenderID      string
	EstimatedTime *float64
	RTT           *int
	Downlink      *float64
	EffectiveType *string
}

type UpdateStatusResponse struct {
	Members []Member
	HostID  string
	Conns   []*websocket.Conn
}

// UpdateStatus merges the sender's reported telemetry into its member record.
// Not authorization-gated: presence data is not correctness-critical.
func (s service) UpdateStatus(ctx context.Context, params *UpdateStatusParams, emit func(UpdateStatusResponse)) error {
	s.rooms.Lock(params.RoomID)
	defer s.rooms.Unlock(params.RoomID)

	if err := s.roomRepo.UpdateMemberStats(ctx, &room.UpdateMemberStatsParams{
		ClientID:      params.SenderID,
		RoomID:        params.RoomID,
		EstimatedTime: params.EstimatedTime,
		RTT:           params.RTT,
		Downlink:      params.Downlink,
		EffectiveType: params.EffectiveType,
		StatsAt:       s.now().UnixMilli(),
	}); err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return ErrMemberNotFound
		}

		return fmt.Errorf("failed to update member stats: %w", err)
	}

	members, err := s.getMemberList(ctx, params.RoomID)
	if err != nil {
		return err
	}

	hostID, err := s.roomRepo.GetHost(ctx, params.RoomID)
	if err != nil && !errors.Is(err, room.ErrHostNotFound) {
		return fmt.Errorf("failed to get host: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return err
	}

	if emit != nil {
		emit(UpdateStatusResponse{
			Members: members,
			HostID:  hostID,
			Conns:   conns,
		})
	}

	return nil
}

type RoomUpdate struct {
	RoomID  string
	Members []Member
	HostID  string
	Conns   []*websocket.Conn
}

// DisconnectClient removes the client from every room it joined, re-electing
// the host where needed, and drops its connection entry. A single
// synchronous pass; emit is invoked once per affected room, inside that
// room's critical section.
func (s service) DisconnectClient(ctx context.Context, clientID string, emit func(RoomUpdate)) error {
	roomIDs, err := s.roomRepo.GetClientRooms(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to get client rooms: %w", err)
	}

	for _, roomID := range roomIDs {
		if err := s.leaveRoom(ctx, roomID, clientID, emit); err != nil {
			s.logger.WarnContext(ctx, "failed to leave room", "room_id", roomID, "client_id", clientID, "error", err)
		}
	}

	if err := s.connRepo.RemoveByClientID(clientID); err != nil {
		s.logger.DebugContext(ctx, "failed to remove connection", "client_id", clientID, "error", err)
	}

	return nil
}

func (s service) leaveRoom(ctx context.Context, roomID, clientID string, emit func(RoomUpdate)) error {
	s.rooms.Lock(roomID)
	defer s.rooms.Unlock(roomID)

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		ClientID: clientID,
		RoomID:   roomID,
	}); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	hostID, err := s.reelectHost(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to elect host: %w", err)
	}

	members, err := s.getMemberList(ctx, roomID)
	if err != nil {
		return err
	}

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return err
	}

	if emit != nil {
		emit(RoomUpdate{
			RoomID:  roomID,
			Members: members,
			HostID:  hostID,
			Conns:   conns,
		})
	}

	return nil
}
