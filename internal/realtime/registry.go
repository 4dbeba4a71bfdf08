package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/domain"
)

// Registry maps authenticated users to their live connections. A user
// may hold several connections at once (multiple tabs). Departure
// announcements are gated per room by RoomIndex.UserConnCount, not
// here; the registry only tracks liveness.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Connection
	byUser map[domain.UserID]map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Connection),
		byUser: make(map[domain.UserID]map[string]*Connection),
	}
}

func (r *Registry) Register(c *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[c.ID]; ok {
		return ErrDuplicateConnection
	}
	r.byConn[c.ID] = c
	conns := r.byUser[c.User.ID]
	if conns == nil {
		conns = make(map[string]*Connection)
		r.byUser[c.User.ID] = conns
	}
	conns[c.ID] = c
	log.Info().Str("module", "realtime.registry").Str("conn", c.ID).Str("user", string(c.User.ID)).Msg("registered connection")
	return nil
}

// Unregister is idempotent; removing an unknown id is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if conns := r.byUser[c.User.ID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, c.User.ID)
		}
	}
	log.Info().Str("module", "realtime.registry").Str("conn", connID).Msg("unregistered connection")
}

func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	return c, ok
}

func (r *Registry) ConnectionsFor(userID domain.UserID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userID]
	out := make([]*Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// HasOther reports whether userID holds any live connection besides
// exceptID, regardless of room. O(1) map probes either way.
func (r *Registry) HasOther(userID domain.UserID, exceptID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userID]
	if len(conns) == 0 {
		return false
	}
	if _, ok := conns[exceptID]; ok {
		return len(conns) > 1
	}
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
