package controller

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchlock/server/internal/repository/connection/inmemory"
	roomRedis "github.com/watchlock/server/internal/repository/room/redis"
	"github.com/watchlock/server/internal/service/room"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.Default()
	roomService := room.NewService(roomRedis.NewRepo(rc, time.Hour, logger), inmemory.NewRepo(logger), logger)

	server := httptest.NewServer(NewController(roomService, logger).GetMux())
	t.Cleanup(server.Close)

	return server
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	// id is the transport-assigned client id, learned from the join ack
	id string
}

func dial(t *testing.T, server *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgType string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}))
}

// expect reads the next message and requires it to be of the given type.
func (c *wsClient) expect(msgType string) json.RawMessage {
	c.t.Helper()

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var out struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(c.t, c.conn.ReadJSON(&out))
	require.Equal(c.t, msgType, out.Type)

	return out.Payload
}

func (c *wsClient) join(roomID, nickname string) {
	c.t.Helper()

	c.send("join", map[string]any{"room_id": roomID, "nickname": nickname})

	var ack struct {
		OK bool   `json:"ok"`
		ID string `json:"id"`
	}
	require.NoError(c.t, json.Unmarshal(c.expect("ack"), &ack))
	require.True(c.t, ack.OK)
	require.NotEmpty(c.t, ack.ID)
	c.id = ack.ID
}

type userList struct {
	Users []struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
	} `json:"users"`
	HostID string `json:"host_id"`
}

func TestJoinFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("000042", "Ana")

	var init struct {
		IsPlaying   bool    `json:"is_playing"`
		CurrentTime float64 `json:"current_time"`
		HostID      string  `json:"host_id"`
	}
	require.NoError(t, json.Unmarshal(host.expect("init"), &init))
	assert.False(t, init.IsPlaying)
	assert.Equal(t, host.id, init.HostID, "first joiner must come back as host")

	var users userList
	require.NoError(t, json.Unmarshal(host.expect("user-list"), &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Ana", users.Users[0].Nickname)
	assert.Equal(t, host.id, users.HostID)

	viewer := dial(t, server)
	viewer.join("000042", "")
	viewer.expect("init")
	require.NoError(t, json.Unmarshal(viewer.expect("user-list"), &users))
	require.Len(t, users.Users, 2)
	assert.Equal(t, "Anon", users.Users[1].Nickname, "missing nickname must default")
	assert.Equal(t, host.id, users.HostID)

	// the host sees the new roster and is asked to sync the joiner
	require.NoError(t, json.Unmarshal(host.expect("user-list"), &users))
	require.Len(t, users.Users, 2)

	var req struct {
		To string `json:"to"`
	}
	require.NoError(t, json.Unmarshal(host.expect("request-sync"), &req))
	assert.Equal(t, viewer.id, req.To)
}

func TestPlaybackAuthority(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r1", "Ana")
	host.expect("init")
	host.expect("user-list")

	viewer := dial(t, server)
	viewer.join("r1", "Bo")
	viewer.expect("init")
	viewer.expect("user-list")
	host.expect("user-list")
	host.expect("request-sync")

	host.send("play", map[string]any{"room_id": "r1", "current_time": 10.0, "timestamp": 1700000000000})

	var play struct {
		CurrentTime float64 `json:"current_time"`
		Timestamp   int64   `json:"timestamp"`
		Actor       string  `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(viewer.expect("play"), &play))
	assert.Equal(t, 10.0, play.CurrentTime)
	assert.Equal(t, int64(1700000000000), play.Timestamp)
	assert.Equal(t, host.id, play.Actor)
	host.expect("play")

	// a viewer-issued seek is rejected privately, nothing is broadcast
	viewer.send("seek", map[string]any{"room_id": "r1", "current_time": 99.0})

	var denied struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(viewer.expect("not-authorized"), &denied))
	assert.Equal(t, "seek", denied.Action)

	// the host's stream stays clean: its next message is its own ping reply
	host.send("ping-check", map[string]any{"ts": 123})
	var pong struct {
		Ts int64 `json:"ts"`
	}
	require.NoError(t, json.Unmarshal(host.expect("ping-pong"), &pong))
	assert.Equal(t, int64(123), pong.Ts)
}

func TestSyncRelay(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r2", "Ana")
	host.expect("init")
	host.expect("user-list")

	viewer := dial(t, server)
	viewer.join("r2", "Bo")
	viewer.expect("init")
	viewer.expect("user-list")
	host.expect("user-list")

	var req struct {
		To string `json:"to"`
	}
	require.NoError(t, json.Unmarshal(host.expect("request-sync"), &req))

	host.send("sync-response", map[string]any{
		"room_id": "r2",
		"to":      req.To,
		"state":   map[string]any{"is_playing": true, "current_time": 33.5, "timestamp": 1700000000000},
	})

	var sync SyncState
	require.NoError(t, json.Unmarshal(viewer.expect("sync"), &sync))
	assert.True(t, sync.IsPlaying)
	assert.Equal(t, 33.5, sync.CurrentTime)
	assert.Equal(t, int64(1700000000000), sync.Timestamp)
}

func TestSetMediaBroadcast(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r3", "Ana")
	host.expect("init")
	host.expect("user-list")

	host.send("set-media", map[string]any{
		"room_id": "r3",
		"media":   map[string]any{"type": "tv", "id": "533535", "season": 2, "episode": 3},
	})

	var media struct {
		Type      string `json:"type"`
		ID        string `json:"id"`
		Season    int    `json:"season"`
		Episode   int    `json:"episode"`
		UpdatedAt int64  `json:"updated_at"`
	}
	require.NoError(t, json.Unmarshal(host.expect("media-updated"), &media))
	assert.Equal(t, "tv", media.Type)
	assert.Equal(t, "533535", media.ID)
	assert.Equal(t, 2, media.Season)
	assert.NotZero(t, media.UpdatedAt)
}

func TestChatFanout(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r4", "Ana")
	host.expect("init")
	host.expect("user-list")

	viewer := dial(t, server)
	viewer.join("r4", "Bo")
	viewer.expect("init")
	viewer.expect("user-list")
	host.expect("user-list")
	host.expect("request-sync")

	viewer.send("chat", map[string]any{"room_id": "r4", "message": "hi all", "nickname": "Bo"})

	var chat struct {
		Message  string `json:"message"`
		Nickname string `json:"nickname"`
		ID       string `json:"id"`
		Ts       int64  `json:"ts"`
	}
	require.NoError(t, json.Unmarshal(host.expect("chat"), &chat))
	assert.Equal(t, "hi all", chat.Message)
	assert.Equal(t, "Bo", chat.Nickname)
	assert.Equal(t, viewer.id, chat.ID)
	assert.NotZero(t, chat.Ts)
	viewer.expect("chat")
}

// Unknown-type replies go to the same connection that room broadcasts
// target; both must come through intact.
func TestUnknownTypeDuringBroadcasts(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r7", "Ana")
	host.expect("init")
	host.expect("user-list")

	viewer := dial(t, server)
	viewer.join("r7", "Bo")
	viewer.expect("init")
	viewer.expect("user-list")
	host.expect("user-list")
	host.expect("request-sync")

	const n = 25
	go func() {
		for i := 0; i < n; i++ {
			host.send("chat", map[string]any{"room_id": "r7", "message": "hi", "nickname": "Ana"})
		}
	}()
	for i := 0; i < n; i++ {
		viewer.send("bogus", map[string]any{})
	}

	viewer.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	chats, unknowns := 0, 0
	for chats < n || unknowns < n {
		var msg map[string]json.RawMessage
		require.NoError(t, viewer.conn.ReadJSON(&msg))
		switch {
		case msg["error"] != nil:
			unknowns++
		default:
			chats++
		}
	}
}

func TestHostDisconnectFailover(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	host.join("r5", "Ana")
	host.expect("init")
	host.expect("user-list")

	viewer := dial(t, server)
	viewer.join("r5", "Bo")
	viewer.expect("init")
	viewer.expect("user-list")

	host.conn.Close()

	var users userList
	require.NoError(t, json.Unmarshal(viewer.expect("user-list"), &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, viewer.id, users.HostID, "remaining viewer must take over authority")

	// authority transfer is effective immediately
	viewer.send("pause", map[string]any{"room_id": "r5", "current_time": 1.0})
	viewer.expect("pause")
}

func TestInvalidJoinPayload(t *testing.T) {
	server := newTestServer(t)

	client := dial(t, server)
	client.send("join", map[string]any{"nickname": "Ana"})

	var ack struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(client.expect("ack"), &ack))
	assert.Equal(t, "room_id is required", ack.Error)
}

func TestUnknownMessageType(t *testing.T) {
	server := newTestServer(t)

	client := dial(t, server)
	client.send("teleport", map[string]any{})

	client.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw map[string]string
	require.NoError(t, client.conn.ReadJSON(&raw))
	assert.Equal(t, "unknown message type", raw["error"])

	// the connection survives an unknown type
	client.join("r6", "Ana")
}
