package redis

import (
	"context"

	"github.com/watchlock/server/internal/repository/room"
)

func (r repo) getMemberKey(roomID, clientID string) string {
	return "room:" + roomID + ":member:" + clientID
}

func (r repo) getMemberListKey(roomID string) string {
	return "room:" + roomID + ":memberlist"
}

func (r repo) getClientRoomsKey(clientID string) string {
	return "client:" + clientID + ":rooms"
}

// AddMember writes the member record and appends the client to the room's
// member list with a strictly increasing score, preserving join order.
func (r repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	member := room.Member{
		Nickname: params.Nickname,
	}
	memberKey := r.getMemberKey(params.RoomID, params.ClientID)
	r.HSetStruct(ctx, pipe, memberKey, member)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	memberListKey := r.getMemberListKey(params.RoomID)
	r.addWithIncrement(ctx, pipe, memberListKey, params.ClientID)
	pipe.Expire(ctx, memberListKey, r.expireDuration)

	clientRoomsKey := r.getClientRoomsKey(params.ClientID)
	pipe.SAdd(ctx, clientRoomsKey, params.RoomID)
	pipe.Expire(ctx, clientRoomsKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	pipe.ZRem(ctx, r.getMemberListKey(params.RoomID), params.ClientID)
	pipe.Del(ctx, r.getMemberKey(params.RoomID, params.ClientID))
	pipe.SRem(ctx, r.getClientRoomsKey(params.ClientID), params.RoomID)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var member room.Member
	if err := r.rc.HGetAll(ctx, r.getMemberKey(params.RoomID, params.ClientID)).Scan(&member); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Member{}, err
	}

	if member.Nickname == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
		return room.Member{}, room.ErrMemberNotFound
	}

	return member, nil
}

// GetMemberIDs returns the room's client ids in join order.
func (r repo) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomID})
	memberIDs, err := r.rc.ZRange(ctx, r.getMemberListKey(roomID), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return memberIDs, nil
}

// UpdateMemberStats merges the reported stats into the member record. Absent
// optional fields are skipped so previously reported values survive.
func (r repo) UpdateMemberStats(ctx context.Context, params *room.UpdateMemberStatsParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	memberKey := r.getMemberKey(params.RoomID, params.ClientID)

	cmd := r.rc.Exists(ctx, memberKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if cmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
		return room.ErrMemberNotFound
	}

	stats := room.MemberStats{
		EstimatedTime: params.EstimatedTime,
		RTT:           params.RTT,
		Downlink:      params.Downlink,
		EffectiveType: params.EffectiveType,
		StatsAt:       &params.StatsAt,
	}

	pipe := r.rc.TxPipeline()
	r.HSetStruct(ctx, pipe, memberKey, stats)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetClientRooms returns the room ids the client is a member of, used by the
// disconnect sweep.
func (r repo) GetClientRooms(ctx context.Context, clientID string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"client_id": clientID})
	roomIDs, err := r.rc.SMembers(ctx, r.getClientRoomsKey(clientID)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return roomIDs, nil
}
