package client

import (
	"context"
	"time"
)

// NotifyPlay reports a locally observed play on the rendering surface. The
// emission is swallowed while the echo guard is armed, so applying a remote
// play does not bounce the same event back to the relay.
func (c *Client) NotifyPlay(currentTime float64) error {
	if c.engine.SuppressLocal() {
		return nil
	}

	return c.sendPlaybackEvent("play", currentTime)
}

func (c *Client) NotifyPause(currentTime float64) error {
	if c.engine.SuppressLocal() {
		return nil
	}

	return c.sendPlaybackEvent("pause", currentTime)
}

func (c *Client) NotifySeek(currentTime float64) error {
	if c.engine.SuppressLocal() {
		return nil
	}

	return c.sendPlaybackEvent("seek", currentTime)
}

func (c *Client) sendPlaybackEvent(kind string, currentTime float64) error {
	return c.send(kind, map[string]any{
		"room_id":      c.cfg.RoomID,
		"current_time": currentTime,
		"timestamp":    time.Now().UnixMilli(),
	})
}

// SendChat relays a chat line to the room.
func (c *Client) SendChat(message string) error {
	return c.send("chat", map[string]any{
		"room_id":  c.cfg.RoomID,
		"message":  message,
		"nickname": c.cfg.Nickname,
	})
}

// SetMedia replaces the room's selection. Host-only on the server side; a
// viewer calling it just earns a not-authorized message.
func (c *Client) SetMedia(media Media) error {
	return c.send("set-media", map[string]any{
		"room_id": c.cfg.RoomID,
		"media":   media,
	})
}

// telemetryLoop reports the local estimate and link quality on a fixed
// interval. Observability only, never correctness-critical.
func (c *Client) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.send("ping-check", map[string]any{
			"ts": time.Now().UnixMilli(),
		}); err != nil {
			c.logger.DebugContext(ctx, "failed to send ping-check", "error", err)
			continue
		}

		c.mu.Lock()
		rtt := c.rtt
		c.mu.Unlock()

		estimated := c.engine.Position()
		if err := c.send("status-update", map[string]any{
			"room_id": c.cfg.RoomID,
			"status": map[string]any{
				"estimated_time": estimated,
				"rtt":            rtt,
				"downlink":       c.cfg.Downlink,
				"effective_type": c.cfg.EffectiveType,
			},
		}); err != nil {
			c.logger.DebugContext(ctx, "failed to send status-update", "error", err)
		}
	}
}
