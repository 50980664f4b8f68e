package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/wsrouter"
)

// readInput unmarshals and validates a payload. A failed validation is a
// client mistake, not a handler error: the caller gets ok=false and the
// first validation message to report back.
func (c *controller) readInput(payload json.RawMessage, input any) (string, bool) {
	if err := json.Unmarshal(payload, input); err != nil {
		return "malformed payload", false
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationErrors[0].Message, false
	}

	return "", true
}

type JoinInput struct {
	RoomID   string `json:"room_id" validate:"required"`
	Nickname string `json:"nickname" validate:"max=32"`
}

func (c *controller) handleJoin(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	clientID := c.getClientIDFromCtx(ctx)

	var input JoinInput
	if msg, ok := c.readInput(payload, &input); !ok {
		return c.writeToConn(ctx, conn, &Output{Type: "ack", Payload: map[string]any{"error": msg}})
	}

	err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomID:   input.RoomID,
		ClientID: clientID,
		Nickname: input.Nickname,
	}, func(joinRoomResp room.JoinRoomResponse) {
		// the ack echoes the transport-assigned id so the client can tell
		// whether it is the host
		if err := c.writeToConn(ctx, conn, &Output{Type: "ack", Payload: map[string]any{"ok": true, "id": clientID}}); err != nil {
			c.logger.DebugContext(ctx, "failed to write ack", "error", err)
		}

		if err := c.writeToConn(ctx, conn, &Output{Type: "init", Payload: joinRoomResp.Room}); err != nil {
			c.logger.DebugContext(ctx, "failed to write init", "error", err)
		}

		c.broadcast(ctx, joinRoomResp.Conns, &Output{
			Type: "user-list",
			Payload: map[string]any{
				"users":   joinRoomResp.Members,
				"host_id": joinRoomResp.HostID,
			},
		})

		// ask the host for a precise state on the joiner's behalf
		if joinRoomResp.HostConn != nil {
			if err := c.writeToConn(ctx, joinRoomResp.HostConn, &Output{
				Type:    "request-sync",
				Payload: map[string]any{"to": clientID},
			}); err != nil {
				c.logger.DebugContext(ctx, "failed to request sync from host", "error", err)
			}
		}
	})
	if err != nil {
		c.writeToConn(ctx, conn, &Output{Type: "ack", Payload: map[string]any{"error": "failed to join room"}})
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

type PlaybackInput struct {
	RoomID      string  `json:"room_id" validate:"required"`
	CurrentTime float64 `json:"current_time"`
	Timestamp   int64   `json:"timestamp"`
}

func (c *controller) playbackHandler(kind room.PlaybackEventKind) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		clientID := c.getClientIDFromCtx(ctx)

		var input PlaybackInput
		if _, ok := c.readInput(payload, &input); !ok {
			return nil
		}

		err := c.roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
			RoomID:      input.RoomID,
			SenderID:    clientID,
			Kind:        kind,
			CurrentTime: input.CurrentTime,
			Timestamp:   input.Timestamp,
		}, func(updatePlaybackResp room.UpdatePlaybackResponse) {
			c.broadcast(ctx, updatePlaybackResp.Conns, &Output{
				Type: string(kind),
				Payload: map[string]any{
					"current_time": updatePlaybackResp.Playback.CurrentTime,
					"timestamp":    updatePlaybackResp.Playback.UpdatedAt,
					"actor":        clientID,
				},
			})
		})
		if err != nil {
			if errors.Is(err, room.ErrPermissionDenied) {
				// soft rejection: the sender is stale, not abusive
				return c.writeToConn(ctx, conn, &Output{
					Type:    "not-authorized",
					Payload: map[string]any{"action": string(kind)},
				})
			}

			return fmt.Errorf("failed to update playback: %w", err)
		}

		return nil
	}
}

type MediaInput struct {
	Type    string  `json:"type" validate:"required,oneof=movie tv"`
	ID      string  `json:"id" validate:"required"`
	Season  int     `json:"season" validate:"min=0"`
	Episode int     `json:"episode" validate:"min=0"`
	StartAt float64 `json:"start_at"`
	Theme   string  `json:"theme" validate:"max=16"`
}

type SetMediaInput struct {
	RoomID string     `json:"room_id" validate:"required"`
	Media  MediaInput `json:"media" validate:"required"`
}

func (c *controller) handleSetMedia(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	clientID := c.getClientIDFromCtx(ctx)

	var input SetMediaInput
	if _, ok := c.readInput(payload, &input); !ok {
		return nil
	}

	err := c.roomService.SetMedia(ctx, &room.SetMediaParams{
		RoomID:   input.RoomID,
		SenderID: clientID,
		Media: room.Media{
			Type:    input.Media.Type,
			ID:      input.Media.ID,
			Season:  input.Media.Season,
			Episode: input.Media.Episode,
			StartAt: input.Media.StartAt,
			Theme:   input.Media.Theme,
		},
	}, func(setMediaResp room.SetMediaResponse) {
		c.broadcast(ctx, setMediaResp.Conns, &Output{
			Type:    "media-updated",
			Payload: setMediaResp.Media,
		})
	})
	if err != nil {
		if errors.Is(err, room.ErrPermissionDenied) {
			return c.writeToConn(ctx, conn, &Output{
				Type:    "not-authorized",
				Payload: map[string]any{"action": "set-media"},
			})
		}

		return fmt.Errorf("failed to set media: %w", err)
	}

	return nil
}

type StatusInput struct {
	EstimatedTime *float64 `json:"estimated_time"`
	RTT           *int     `json:"rtt"`
	Downlink      *float64 `json:"downlink"`
	EffectiveType *string  `json:"effective_type"`
}

type StatusUpdateInput struct {
	RoomID string      `json:"room_id" validate:"required"`
	Status StatusInput `json:"status"`
}

func (c *controller) handleStatusUpdate(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	clientID := c.getClientIDFromCtx(ctx)

	var input StatusUpdateInput
	if _, ok := c.readInput(payload, &input); !ok {
		return nil
	}

	err := c.roomService.UpdateStatus(ctx, &room.UpdateStatusParams{
		RoomID:        input.RoomID,
		SenderID:      clientID,
		EstimatedTime: input.Status.EstimatedTime,
		RTT:           input.Status.RTT,
		Downlink:      input.Status.Downlink,
		EffectiveType: input.Status.EffectiveType,
	}, func(updateStatusResp room.UpdateStatusResponse) {
		c.broadcast(ctx, updateStatusResp.Conns, &Output{
			Type: "user-list",
			Payload: map[string]any{
				"users":   updateStatusResp.Members,
				"host_id": updateStatusResp.HostID,
			},
		})
	})
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			// status from a client that already left; drop it
			return nil
		}

		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

type PingCheckInput struct {
	Ts int64 `json:"ts"`
}

func (c *controller) handlePingCheck(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PingCheckInput
	if _, ok := c.readInput(payload, &input); !ok {
		return nil
	}

	return c.writeToConn(ctx, conn, &Output{
		Type:    "ping-pong",
		Payload: map[string]any{"ts": input.Ts},
	})
}

type SyncState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Timestamp   int64   `json:"timestamp"`
}

type SyncResponseInput struct {
	RoomID string    `json:"room_id" validate:"required"`
	To     string    `json:"to" validate:"required"`
	State  SyncState `json:"state"`
}

// handleSyncResponse forwards the host's exact state to one target client.
// Host-only by convention; a stray sync from a viewer is harmless since the
// target applies it idempotently.
func (c *controller) handleSyncResponse(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SyncResponseInput
	if _, ok := c.readInput(payload, &input); !ok {
		return nil
	}

	target, err := c.roomService.ResolveSyncTarget(ctx, input.RoomID, input.To)
	if err != nil {
		if errors.Is(err, room.ErrTargetNotFound) {
			c.logger.DebugContext(ctx, "sync target gone", "to", input.To)
			return nil
		}

		return fmt.Errorf("failed to resolve sync target: %w", err)
	}

	return c.writeToConn(ctx, target, &Output{Type: "sync", Payload: input.State})
}

type ChatInput struct {
	RoomID   string `json:"room_id" validate:"required"`
	Message  string `json:"message" validate:"required,max=500"`
	Nickname string `json:"nickname" validate:"max=32"`
}

func (c *controller) handleChat(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	clientID := c.getClientIDFromCtx(ctx)

	var input ChatInput
	if _, ok := c.readInput(payload, &input); !ok {
		return nil
	}

	err := c.roomService.RoomConns(ctx, input.RoomID, func(conns []*websocket.Conn) {
		c.broadcast(ctx, conns, &Output{
			Type: "chat",
			Payload: map[string]any{
				"message":  input.Message,
				"nickname": input.Nickname,
				"id":       clientID,
				"ts":       time.Now().UnixMilli(),
			},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to get room conns: %w", err)
	}

	return nil
}
