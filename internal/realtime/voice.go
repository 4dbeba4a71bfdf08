package realtime

import (
	"sync"

	"github.com/codepair/collab/internal/domain"
)

// VoicePeer is one connection currently in a room's voice channel.
type VoicePeer struct {
	ConnID string `json:"connId"`
	Muted  bool   `json:"muted"`
}

// VoiceTracker keeps the per-room set of connections opted into voice,
// with each connection's mute flag. Membership here requires a matching
// text-room membership entry; the Hub enforces that before calling in.
type VoiceTracker struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]map[string]bool // connID -> muted
}

func NewVoiceTracker() *VoiceTracker {
	return &VoiceTracker{rooms: make(map[domain.RoomCode]map[string]bool)}
}

// Join adds the connection unmuted and returns the roster as it was
// before the join, so the joiner can initiate offers to each existing
// peer (roster-then-initiate, avoids the both-sides-offer glare race).
func (v *VoiceTracker) Join(code domain.RoomCode, connID string) []VoicePeer {
	v.mu.Lock()
	defer v.mu.Unlock()
	room := v.rooms[code]
	if room == nil {
		room = make(map[string]bool)
		v.rooms[code] = room
	}
	peers := make([]VoicePeer, 0, len(room))
	for id, muted := range room {
		if id == connID {
			continue
		}
		peers = append(peers, VoicePeer{ConnID: id, Muted: muted})
	}
	room[connID] = false
	return peers
}

// Leave removes the entry; the voice state of the room is dropped when
// the set empties. Returns false if the connection was not in voice.
func (v *VoiceTracker) Leave(code domain.RoomCode, connID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	room := v.rooms[code]
	if room == nil {
		return false
	}
	if _, ok := room[connID]; !ok {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(v.rooms, code)
	}
	return true
}

func (v *VoiceTracker) SetMute(code domain.RoomCode, connID string, muted bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	room := v.rooms[code]
	if room == nil {
		return false
	}
	if _, ok := room[connID]; !ok {
		return false
	}
	room[connID] = muted
	return true
}

func (v *VoiceTracker) Contains(code domain.RoomCode, connID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.rooms[code][connID]
	return ok
}

func (v *VoiceTracker) Roster(code domain.RoomCode) []VoicePeer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	room := v.rooms[code]
	out := make([]VoicePeer, 0, len(room))
	for id, muted := range room {
		out = append(out, VoicePeer{ConnID: id, Muted: muted})
	}
	return out
}

// Drop discards all voice state of a room.
func (v *VoiceTracker) Drop(code domain.RoomCode) {
	v.mu.Lock()
	delete(v.rooms, code)
	v.mu.Unlock()
}
