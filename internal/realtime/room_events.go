package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/metrics"
	"github.com/codepair/collab/internal/store"
)

type roomDescriptor struct {
	Code        domain.RoomCode `json:"code"`
	OrganiserID domain.UserID   `json:"organiserId"`
}

// HandleJoinRoom validates the (user, room) pairing against the store,
// inserts the membership entry, and announces the join. The store
// lookups are the only awaited operations on this path; other
// connections keep being served meanwhile, so registered state is
// re-checked once they resolve.
func (h *Hub) HandleJoinRoom(ctx context.Context, c *Connection, rawCode string) {
	code := domain.NormalizeCode(rawCode)
	if code == "" {
		h.sendError(c, "Room not found")
		return
	}

	if cur, ok := c.Room(); ok {
		if cur == code {
			// Idempotent rejoin: resend the current state, do not
			// duplicate the entry or re-announce.
			h.sendJoined(ctx, c, code)
			return
		}
		h.sendError(c, ErrAlreadyInOtherRoom.Error())
		return
	}

	room, err := h.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			h.sendError(c, "Room not found")
		} else {
			log.Error().Err(err).Str("module", "realtime.hub").Str("room", string(code)).Msg("room lookup")
			h.sendError(c, "Failed to join room")
		}
		return
	}
	role, err := h.store.ParticipantRole(ctx, code, c.User.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotParticipant) {
			h.sendError(c, ErrNotAParticipant.Error())
		} else {
			log.Error().Err(err).Str("module", "realtime.hub").Str("room", string(code)).Msg("role lookup")
			h.sendError(c, "Failed to join room")
		}
		return
	}

	// Stale-completion guard: the connection may have disconnected
	// while the store lookups were in flight.
	if _, ok := h.registry.Get(c.ID); !ok {
		return
	}

	if len(h.rooms.Connections(code)) == 0 {
		metrics.RoomsActive.Inc()
	}
	if !h.rooms.Add(code, c) {
		// Lost a race with ourselves; treat as the idempotent case.
		h.sendJoined(ctx, c, code)
		return
	}
	c.setRoom(code, role)
	log.Info().Str("module", "realtime.hub").Str("conn", c.ID).Str("user", string(c.User.ID)).Str("room", string(code)).Msg("joined room")

	participants := h.participantList(ctx, code)

	h.sendJSON(c, struct {
		Event        string           `json:"event"`
		Room         roomDescriptor   `json:"room"`
		Participants []ParticipantDTO `json:"participants"`
		UserRole     domain.Role      `json:"userRole"`
	}{
		Event:        "roomJoined",
		Room:         roomDescriptor{Code: room.Code, OrganiserID: room.OrganiserID},
		Participants: participants,
		UserRole:     role,
	})

	h.broadcast(code, struct {
		Event        string           `json:"event"`
		User         UserDTO          `json:"user"`
		Participants []ParticipantDTO `json:"participants"`
	}{
		Event:        "userJoined",
		User:         h.userDTO(c),
		Participants: participants,
	}, c.ID)

	// Replay the current editor state to the joiner, if any exists.
	if snap, ok := h.editor.Get(code); ok {
		h.sendJSON(c, struct {
			Event    string          `json:"event"`
			RoomCode domain.RoomCode `json:"roomCode"`
			Code     string          `json:"code"`
			Language string          `json:"language"`
			Theme    string          `json:"theme"`
		}{
			Event:    "codeSync",
			RoomCode: code,
			Code:     snap.Code,
			Language: snap.Language,
			Theme:    snap.Theme,
		})
	}
}

func (h *Hub) sendJoined(ctx context.Context, c *Connection, code domain.RoomCode) {
	room, err := h.store.GetByCode(ctx, code)
	if err != nil {
		// Membership is intact; only the resync frame cannot be built.
		log.Error().Err(err).Str("module", "realtime.hub").Str("room", string(code)).Msg("resync lookup")
		h.sendError(c, "Failed to resync room state")
		return
	}
	h.sendJSON(c, struct {
		Event        string           `json:"event"`
		Room         roomDescriptor   `json:"room"`
		Participants []ParticipantDTO `json:"participants"`
		UserRole     domain.Role      `json:"userRole"`
	}{
		Event:        "roomJoined",
		Room:         roomDescriptor{Code: room.Code, OrganiserID: room.OrganiserID},
		Participants: h.participantList(ctx, code),
		UserRole:     c.Role(),
	})
}

// HandleLeaveRoom is the explicit departure. Membership-wise it is the
// same as a disconnect, but the connection stays open.
func (h *Hub) HandleLeaveRoom(ctx context.Context, c *Connection) {
	h.leaveRoom(ctx, c)
}

// leaveRoom tears down voice first, then the membership entry. The
// departure is announced, and the store participant record removed,
// only when this was the user's last connection in the room; closing
// one of several tabs stays silent.
func (h *Hub) leaveRoom(ctx context.Context, c *Connection) {
	code, ok := c.Room()
	if !ok {
		return
	}

	if h.voice.Leave(code, c.ID) {
		h.broadcast(code, struct {
			Event  string `json:"event"`
			ConnID string `json:"connId"`
		}{Event: "voice:peer-left", ConnID: c.ID}, c.ID)
	}

	remaining := h.rooms.Remove(code, c.ID)
	c.clearRoom()

	if h.rooms.UserConnCount(code, c.User.ID) == 0 {
		if err := h.store.RemoveParticipant(ctx, code, c.User.ID); err != nil {
			log.Error().Err(err).Str("module", "realtime.hub").Str("room", string(code)).Str("user", string(c.User.ID)).Msg("remove participant")
		}
		if remaining > 0 {
			h.broadcast(code, struct {
				Event        string           `json:"event"`
				User         UserDTO          `json:"user"`
				Participants []ParticipantDTO `json:"participants"`
			}{
				Event:        "userLeft",
				User:         UserDTO{ID: c.User.ID, Name: c.User.DisplayName()},
				Participants: h.participantList(ctx, code),
			}, c.ID)
		}
	}

	if remaining == 0 {
		h.editor.Drop(code)
		h.voice.Drop(code)
		metrics.RoomsActive.Dec()
	}
	log.Info().Str("module", "realtime.hub").Str("conn", c.ID).Str("room", string(code)).Msg("left room")
}

// HandleChat fans a chat line out to the rest of the room with the
// sender identity and a server timestamp attached.
func (h *Hub) HandleChat(c *Connection, message string) {
	code, ok := c.Room()
	if !ok {
		return
	}
	h.broadcast(code, struct {
		Event     string  `json:"event"`
		User      UserDTO `json:"user"`
		Message   string  `json:"message"`
		Timestamp string  `json:"timestamp"`
	}{
		Event:     "chatMessage",
		User:      h.userDTO(c),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, c.ID)
}

// HandleCursorChange is a pure relay; nothing is stored.
func (h *Hub) HandleCursorChange(c *Connection, rawCode string, position json.RawMessage) {
	code, ok := c.Room()
	if !ok || domain.NormalizeCode(rawCode) != code {
		return
	}
	h.broadcast(code, struct {
		Event    string          `json:"event"`
		UserID   domain.UserID   `json:"userId"`
		UserName string          `json:"userName"`
		RoomCode domain.RoomCode `json:"roomCode"`
		Position json.RawMessage `json:"position"`
	}{
		Event:    "cursorChange",
		UserID:   c.User.ID,
		UserName: c.User.DisplayName(),
		RoomCode: code,
		Position: position,
	}, c.ID)
}
