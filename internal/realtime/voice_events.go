package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// HandleVoiceJoin opts the connection into the room's voice channel.
// The joiner receives the roster as it stood before the join and is
// expected to initiate an offer to each listed peer; existing members
// only learn about the newcomer and wait for its offers. Joiners start
// unmuted.
func (h *Hub) HandleVoiceJoin(c *Connection) {
	code, ok := c.Room()
	if !ok {
		h.sendError(c, ErrNotInRoom.Error())
		return
	}
	peers := h.voice.Join(code, c.ID)
	log.Info().Str("module", "realtime.voice").Str("conn", c.ID).Str("room", string(code)).Int("peers", len(peers)).Msg("voice join")

	h.sendJSON(c, struct {
		Event string      `json:"event"`
		Peers []VoicePeer `json:"peers"`
		You   string      `json:"you"`
		User  UserDTO     `json:"user"`
	}{
		Event: "voice:roster",
		Peers: peers,
		You:   c.ID,
		User:  h.userDTO(c),
	})

	h.broadcast(code, struct {
		Event  string  `json:"event"`
		ConnID string  `json:"connId"`
		User   UserDTO `json:"user"`
	}{
		Event:  "voice:peer-joined",
		ConnID: c.ID,
		User:   h.userDTO(c),
	}, c.ID)
}

func (h *Hub) HandleVoiceLeave(c *Connection) {
	code, ok := c.Room()
	if !ok {
		return
	}
	if !h.voice.Leave(code, c.ID) {
		return
	}
	h.broadcast(code, struct {
		Event  string `json:"event"`
		ConnID string `json:"connId"`
	}{Event: "voice:peer-left", ConnID: c.ID}, c.ID)
}

// HandleVoiceMute updates the flag and rebroadcasts the roster so UIs
// can reflect it; relay behavior is unaffected.
func (h *Hub) HandleVoiceMute(c *Connection, muted bool) {
	code, ok := c.Room()
	if !ok {
		return
	}
	if !h.voice.SetMute(code, c.ID, muted) {
		return
	}
	h.broadcast(code, struct {
		Event  string      `json:"event"`
		ConnID string      `json:"connId"`
		User   UserDTO     `json:"user"`
		Muted  bool        `json:"muted"`
		Roster []VoicePeer `json:"roster"`
	}{
		Event:  "voice:mute",
		ConnID: c.ID,
		User:   h.userDTO(c),
		Muted:  muted,
		Roster: h.voice.Roster(code),
	}, c.ID)
}

// HandleVoiceSignal relays a WebRTC offer/answer/candidate payload to
// the target connection verbatim. The sender must be in some room; the
// target only needs to be live — signaling is addressed by connection
// id once rosters have been exchanged. A missing target is a tolerated
// race with disconnect, not an error.
func (h *Hub) HandleVoiceSignal(c *Connection, targetID string, signal json.RawMessage) {
	if _, ok := c.Room(); !ok {
		return
	}
	if targetID == "" || !validSignal(signal) {
		return
	}
	target, ok := h.registry.Get(targetID)
	if !ok {
		log.Debug().Str("module", "realtime.voice").Str("from", c.ID).Str("to", targetID).Msg("relay target gone")
		return
	}
	h.sendJSON(target, struct {
		Event  string          `json:"event"`
		FromID string          `json:"fromId"`
		User   UserDTO         `json:"user"`
		Signal json.RawMessage `json:"signal"`
	}{
		Event:  "voice:signal",
		FromID: c.ID,
		User:   h.userDTO(c),
		Signal: signal,
	})
}
