package wsrouter

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

// ErrorFunc is called with the handler error, if any. It must not close the
// connection: handler errors are advisory from the relay's point of view.
type ErrorFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes  map[string]HandlerFunc
	onError ErrorFunc
	// gorilla conns do not support concurrent writers; one mutex per conn,
	// shared by every write that goes through this router.
	writeMus sync.Map
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

func (r *WSRouter) OnError(f ErrorFunc) {
	r.onError = f
}

// WriteJSON writes v to the connection, serialized against every other
// WriteJSON call for the same connection.
func (r *WSRouter) WriteJSON(conn *websocket.Conn, v any) error {
	mu, _ := r.writeMus.LoadOrStore(conn, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	return conn.WriteJSON(v)
}

// DropConn releases the connection's write mutex entry. Call it once no
// writer can reach the connection anymore.
func (r *WSRouter) DropConn(conn *websocket.Conn) {
	r.writeMus.Delete(conn)
}

// ServeConn reads messages from the connection until the read fails,
// dispatching each to the registered handler. Messages are processed to
// completion one at a time, so handlers never interleave on the same
// connection.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			r.WriteJSON(conn, map[string]string{"error": "unknown message type"})
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil && r.onError != nil {
			r.onError(msgCtx, conn, err)
		}
	}
}
