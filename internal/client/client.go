// Package client implements a watch-party participant: it joins a room over
// the relay's websocket contract, feeds host events into the reconciliation
// engine, answers sync requests when it is the host, and reports telemetry.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/playback"
	"github.com/watchlock/server/internal/reconciler"
	"github.com/watchlock/server/pkg/wsrouter"
)

const defaultTelemetryInterval = 3 * time.Second

type Media struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Season    int     `json:"season"`
	Episode   int     `json:"episode"`
	StartAt   float64 `json:"start_at"`
	Theme     string  `json:"theme"`
	UpdatedAt int64   `json:"updated_at"`
}

type ChatMessage struct {
	Message  string `json:"message"`
	Nickname string `json:"nickname"`
	ID       string `json:"id"`
	Ts       int64  `json:"ts"`
}

type Config struct {
	URL               string
	RoomID            string
	Nickname          string
	TelemetryInterval time.Duration
	// Downlink and EffectiveType describe the local link, if known.
	Downlink      *float64
	EffectiveType *string
	// OnChat, if set, receives broadcast chat messages.
	OnChat func(ChatMessage)
}

type Client struct {
	cfg        Config
	engine     *reconciler.Engine
	controller playback.Controller
	logger     *slog.Logger
	mux        *wsrouter.WSRouter

	conn *websocket.Conn

	mu     sync.Mutex
	selfID string
	hostID string
	media  *Media
	rtt    *int
}

func New(cfg Config, controller playback.Controller, logger *slog.Logger) *Client {
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = defaultTelemetryInterval
	}

	c := &Client{
		cfg:        cfg,
		engine:     reconciler.New(controller),
		controller: controller,
		logger:     logger,
	}
	c.mux = c.getWSRouter()

	return c
}

// Engine exposes the reconciliation engine, mainly so a rendering surface
// can read the current estimate.
func (c *Client) Engine() *reconciler.Engine {
	return c.engine
}

// Run dials the relay, joins the configured room and serves messages until
// the context is canceled or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}
	c.conn = conn

	if err := c.send("join", map[string]any{
		"room_id":  c.cfg.RoomID,
		"nickname": c.cfg.Nickname,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to join: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go c.telemetryLoop(runCtx)

	// ServeConn blocks in a read; closing the conn is the only way to
	// unblock it when the context is canceled
	go func() {
		<-runCtx.Done()
		conn.Close()
	}()

	return c.mux.ServeConn(ctx, conn)
}

func (c *Client) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ack", c.handleAck)
	mux.Handle("init", c.handleInit)
	mux.Handle("user-list", c.handleUserList)
	mux.Handle("play", c.handlePlay)
	mux.Handle("pause", c.handlePause)
	mux.Handle("seek", c.handleSeek)
	mux.Handle("sync", c.handleSync)
	mux.Handle("request-sync", c.handleRequestSync)
	mux.Handle("media-updated", c.handleMediaUpdated)
	mux.Handle("ping-pong", c.handlePingPong)
	mux.Handle("not-authorized", c.handleNotAuthorized)
	mux.Handle("chat", c.handleChat)

	mux.OnError(func(ctx context.Context, _ *websocket.Conn, err error) {
		c.logger.WarnContext(ctx, "failed to handle message",
			"type", wsrouter.GetMessageTypeFromCtx(ctx), "error", err)
	})

	return mux
}

// send goes through the router's per-conn write mutex, so local emissions
// never race replies the router writes on the same connection.
func (c *Client) send(msgType string, payload any) error {
	return c.mux.WriteJSON(c.conn, struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{Type: msgType, Payload: payload})
}

func (c *Client) handleAck(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var ack struct {
		OK    bool   `json:"ok"`
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &ack); err != nil {
		return err
	}

	if ack.Error != "" {
		return fmt.Errorf("join rejected: %s", ack.Error)
	}

	c.mu.Lock()
	c.selfID = ack.ID
	c.mu.Unlock()

	return nil
}

func (c *Client) handleInit(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var init struct {
		IsPlaying   bool    `json:"is_playing"`
		CurrentTime float64 `json:"current_time"`
		UpdatedAt   int64   `json:"updated_at"`
		HostID      string  `json:"host_id"`
		Media       *Media  `json:"media"`
	}
	if err := json.Unmarshal(payload, &init); err != nil {
		return err
	}

	c.mu.Lock()
	c.hostID = init.HostID
	c.media = init.Media
	c.mu.Unlock()

	// the init snapshot is the baseline; a host sync may refine it later
	c.engine.ApplySync(reconciler.SyncState{
		IsPlaying:   init.IsPlaying,
		CurrentTime: init.CurrentTime,
		Timestamp:   init.UpdatedAt,
	})

	return nil
}

func (c *Client) handleUserList(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var userList struct {
		HostID string `json:"host_id"`
	}
	if err := json.Unmarshal(payload, &userList); err != nil {
		return err
	}

	c.mu.Lock()
	c.hostID = userList.HostID
	c.mu.Unlock()

	return nil
}

type playbackEvent struct {
	CurrentTime float64 `json:"current_time"`
	Timestamp   int64   `json:"timestamp"`
	Actor       string  `json:"actor"`
}

func (c *Client) handlePlay(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var event playbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	c.engine.ApplyPlay(event.CurrentTime, event.Timestamp)

	return nil
}

func (c *Client) handlePause(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var event playbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	c.engine.ApplyPause(event.CurrentTime)

	return nil
}

func (c *Client) handleSeek(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var event playbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	c.engine.ApplySeek(event.CurrentTime, event.Timestamp)

	return nil
}

func (c *Client) handleSync(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var state reconciler.SyncState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}

	c.engine.ApplySync(state)

	return nil
}

// handleRequestSync answers with the exact local state when this client is
// the host. Viewers ignore the request.
func (c *Client) handleRequestSync(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var request struct {
		To string `json:"to"`
	}
	if err := json.Unmarshal(payload, &request); err != nil {
		return err
	}

	if !c.IsHost() {
		return nil
	}

	now := time.Now()
	snapshot := c.engine.State()

	return c.send("sync-response", map[string]any{
		"room_id": c.cfg.RoomID,
		"to":      request.To,
		"state": reconciler.SyncState{
			IsPlaying:   snapshot.Playing,
			CurrentTime: snapshot.PositionAt(now),
			Timestamp:   now.UnixMilli(),
		},
	})
}

func (c *Client) handleMediaUpdated(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var media Media
	if err := json.Unmarshal(payload, &media); err != nil {
		return err
	}

	c.mu.Lock()
	previous := c.media
	c.media = &media
	c.mu.Unlock()

	// a new selection means stale local progress for the old one
	if previous == nil || previous.Type != media.Type || previous.ID != media.ID ||
		previous.Season != media.Season || previous.Episode != media.Episode {
		c.controller.ClearProgress()
		c.engine.ApplySync(reconciler.SyncState{
			IsPlaying:   false,
			CurrentTime: media.StartAt,
			Timestamp:   media.UpdatedAt,
		})
	}

	return nil
}

func (c *Client) handlePingPong(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var pong struct {
		Ts int64 `json:"ts"`
	}
	if err := json.Unmarshal(payload, &pong); err != nil {
		return err
	}

	rtt := int(time.Now().UnixMilli() - pong.Ts)

	c.mu.Lock()
	c.rtt = &rtt
	c.mu.Unlock()

	return nil
}

func (c *Client) handleNotAuthorized(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var info struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		return err
	}

	// stale authority, not an error: the next user-list carries the real host
	c.logger.InfoContext(ctx, "not authorized", "action", info.Action)

	return nil
}

func (c *Client) handleChat(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	if c.cfg.OnChat == nil {
		return nil
	}

	var msg ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}

	c.cfg.OnChat(msg)

	return nil
}

func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selfID != "" && c.selfID == c.hostID
}
