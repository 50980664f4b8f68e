package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/watchlock/server/internal/repository/connection"
)

// repo tracks live websocket connections by the ephemeral client id the
// transport layer assigned them. Pure membership bookkeeping, no room logic.
type repo struct {
	logger   *slog.Logger
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	mu       sync.RWMutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger:   logger,
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[clientID] != nil {
		r.logger.Debug("connection.inmemory.Add", "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = clientID
	r.idList[clientID] = conn

	return nil
}

func (r *repo) RemoveByClientID(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[clientID]
	if !ok {
		r.logger.Debug("connection.inmemory.RemoveByClientID", "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, clientID)

	return nil
}

func (r *repo) GetConn(clientID string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[clientID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
