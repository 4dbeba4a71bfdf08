package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/domain"
)

// RoomIndex tracks which connections are inside which room. It stores
// back-references only; the Registry stays the owner of connections.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]map[string]*Connection
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{rooms: make(map[domain.RoomCode]map[string]*Connection)}
}

// Add inserts the connection into the room. Returns false when the
// connection is already a member (the caller treats that as an
// idempotent join).
func (ri *RoomIndex) Add(code domain.RoomCode, c *Connection) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	room := ri.rooms[code]
	if room == nil {
		room = make(map[string]*Connection)
		ri.rooms[code] = room
	}
	if _, ok := room[c.ID]; ok {
		return false
	}
	room[c.ID] = c
	log.Info().Str("module", "realtime.rooms").Str("room", string(code)).Str("conn", c.ID).Msg("member added")
	return true
}

// Remove deletes the entry and reports how many connections remain in
// the room. The room map itself is dropped when it empties.
func (ri *RoomIndex) Remove(code domain.RoomCode, connID string) int {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	room := ri.rooms[code]
	if room == nil {
		return 0
	}
	delete(room, connID)
	remaining := len(room)
	if remaining == 0 {
		delete(ri.rooms, code)
	}
	log.Info().Str("module", "realtime.rooms").Str("room", string(code)).Str("conn", connID).Int("remaining", remaining).Msg("member removed")
	return remaining
}

func (ri *RoomIndex) Connections(code domain.RoomCode) []*Connection {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	room := ri.rooms[code]
	out := make([]*Connection, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

// UserConnCount counts how many connections of userID are inside the
// room; the departure of a user is only announced when this drops to
// zero.
func (ri *RoomIndex) UserConnCount(code domain.RoomCode, userID domain.UserID) int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	n := 0
	for _, c := range ri.rooms[code] {
		if c.User.ID == userID {
			n++
		}
	}
	return n
}

// ConnOf returns a representative live connection id for userID inside
// the room, for direct voice/WebRTC addressing.
func (ri *RoomIndex) ConnOf(code domain.RoomCode, userID domain.UserID) (string, bool) {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	for id, c := range ri.rooms[code] {
		if c.User.ID == userID {
			return id, true
		}
	}
	return "", false
}

func (ri *RoomIndex) Contains(code domain.RoomCode, connID string) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	_, ok := ri.rooms[code][connID]
	return ok
}
