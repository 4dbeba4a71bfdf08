package realtime

import (
	"sync"

	"github.com/codepair/collab/internal/domain"
)

// Sender abstracts the signaling transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	TrySend([]byte) error
	Close()
}

// Connection is one live realtime link. The Registry owns it; the room
// index and the voice tracker hold its id only.
type Connection struct {
	ID   string
	User *domain.User
	send Sender

	mu    sync.RWMutex
	room  domain.RoomCode
	role  domain.Role
	muted bool
}

func NewConnection(id string, user *domain.User, send Sender) *Connection {
	return &Connection{ID: id, User: user, send: send}
}

func (c *Connection) Room() (domain.RoomCode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.room != ""
}

func (c *Connection) Role() domain.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

func (c *Connection) setRoom(code domain.RoomCode, role domain.Role) {
	c.mu.Lock()
	c.room = code
	c.role = role
	c.mu.Unlock()
}

func (c *Connection) clearRoom() {
	c.mu.Lock()
	c.room = ""
	c.role = ""
	c.muted = false
	c.mu.Unlock()
}
