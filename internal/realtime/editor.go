package realtime

import (
	"sync"

	"github.com/codepair/collab/internal/domain"
)

const (
	defaultLanguage = "javascript"
	defaultTheme    = "vs-dark"
)

// Snapshot is the last-known editor state of one room. Held only in
// memory, lost on restart.
type Snapshot struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// EditorCache keeps one Snapshot per room, last-writer-wins. Concurrent
// edits are resolved purely by arrival order; there is deliberately no
// operational transform here.
type EditorCache struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]Snapshot
}

func NewEditorCache() *EditorCache {
	return &EditorCache{rooms: make(map[domain.RoomCode]Snapshot)}
}

func (e *EditorCache) Get(code domain.RoomCode) (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.rooms[code]
	return s, ok
}

func (e *EditorCache) apply(code domain.RoomCode, fn func(*Snapshot)) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.rooms[code]
	if !ok {
		s = Snapshot{Language: defaultLanguage, Theme: defaultTheme}
	}
	fn(&s)
	e.rooms[code] = s
	return s
}

func (e *EditorCache) ApplyCode(code domain.RoomCode, text string) Snapshot {
	return e.apply(code, func(s *Snapshot) { s.Code = text })
}

func (e *EditorCache) ApplyLanguage(code domain.RoomCode, lang string) Snapshot {
	return e.apply(code, func(s *Snapshot) { s.Language = lang })
}

func (e *EditorCache) ApplyTheme(code domain.RoomCode, theme string) Snapshot {
	return e.apply(code, func(s *Snapshot) { s.Theme = theme })
}

// Drop purges the snapshot when the room empties.
func (e *EditorCache) Drop(code domain.RoomCode) {
	e.mu.Lock()
	delete(e.rooms, code)
	e.mu.Unlock()
}
