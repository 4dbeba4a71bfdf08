// Package realtime implements the room-presence and signaling
// coordinator: connection registry, room membership, editor snapshots,
// voice sessions, WebRTC signal relay, and event fan-out.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/metrics"
	"github.com/codepair/collab/internal/store"
)

// Hub ties the in-memory state components together and owns all
// mutation paths. Shared maps are only written through the operations
// below; each connection's events arrive serialized from its own read
// pump, so per-connection ordering is preserved while connections
// interleave freely.
//
// Scaling boundary: all state here is process-local. Running more than
// one process requires replacing these maps with a shared store whose
// join/leave are compare-and-set operations.
type Hub struct {
	registry *Registry
	rooms    *RoomIndex
	editor   *EditorCache
	voice    *VoiceTracker
	events   *Limiter
	store    store.Rooms
}

func NewHub(rooms store.Rooms, events *Limiter) *Hub {
	return &Hub{
		registry: NewRegistry(),
		rooms:    NewRoomIndex(),
		editor:   NewEditorCache(),
		voice:    NewVoiceTracker(),
		events:   events,
		store:    rooms,
	}
}

func (h *Hub) Registry() *Registry  { return h.registry }
func (h *Hub) Editor() *EditorCache { return h.editor }
func (h *Hub) Voice() *VoiceTracker { return h.voice }
func (h *Hub) Rooms() *RoomIndex    { return h.rooms }

// Connect registers an authenticated connection.
func (h *Hub) Connect(c *Connection) error {
	if err := h.registry.Register(c); err != nil {
		return err
	}
	metrics.ConnectionsActive.Inc()
	return nil
}

// Disconnect tears a connection down from whatever state it is in:
// voice first, then room membership, then the registry entry.
func (h *Hub) Disconnect(ctx context.Context, c *Connection) {
	h.leaveRoom(ctx, c)
	h.registry.Unregister(c.ID)
	if h.events != nil {
		h.events.Forget(c.ID)
	}
	metrics.ConnectionsActive.Dec()
}

// AllowEvent is the per-connection frequency gate. Over-limit events
// are dropped silently; the caller must not surface an error.
func (h *Hub) AllowEvent(connID string) bool {
	if h.events == nil {
		return true
	}
	if !h.events.Allow(connID) {
		metrics.EventsDropped.Inc()
		return false
	}
	return true
}

func (h *Hub) sendJSON(c *Connection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.hub").Msg("sendJSON marshal")
		return
	}
	if err := c.send.TrySend(b); err != nil {
		metrics.FramesDropped.Inc()
		log.Warn().Str("module", "realtime.hub").Str("conn", c.ID).Msg("dropped frame")
	}
}

func (h *Hub) sendError(c *Connection, msg string) {
	h.sendJSON(c, errorEvent{Event: "error", Message: msg})
}

// broadcast delivers v to every live connection currently in the room,
// except exclude when non-empty. Connections outside the room never
// receive room events.
func (h *Hub) broadcast(code domain.RoomCode, v any, exclude string) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.hub").Msg("broadcast marshal")
		return
	}
	for _, c := range h.rooms.Connections(code) {
		if c.ID == exclude {
			continue
		}
		if err := c.send.TrySend(b); err != nil {
			metrics.FramesDropped.Inc()
			log.Warn().Str("module", "realtime.hub").Str("conn", c.ID).Str("room", string(code)).Msg("dropped broadcast frame")
		}
	}
}

// ParticipantsOf returns the room's current participant list.
func (h *Hub) ParticipantsOf(ctx context.Context, code domain.RoomCode) []ParticipantDTO {
	return h.participantList(ctx, code)
}

// participantList joins the store's participant records with the live
// index to attach a representative connection id per user.
func (h *Hub) participantList(ctx context.Context, code domain.RoomCode) []ParticipantDTO {
	parts, err := h.store.Participants(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.hub").Str("room", string(code)).Msg("participants lookup")
		return nil
	}
	out := make([]ParticipantDTO, 0, len(parts))
	for _, p := range parts {
		dto := ParticipantDTO{
			ID:    p.User.ID,
			Name:  p.User.DisplayName(),
			Email: p.User.Email,
			Role:  p.Role,
		}
		if id, ok := h.rooms.ConnOf(code, p.User.ID); ok {
			dto.ConnID = id
		}
		out = append(out, dto)
	}
	return out
}

func (h *Hub) userDTO(c *Connection) UserDTO {
	return UserDTO{ID: c.User.ID, Name: c.User.DisplayName(), Role: c.Role()}
}
