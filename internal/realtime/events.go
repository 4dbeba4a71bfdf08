package realtime

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/codepair/collab/internal/domain"
)

// Client → server event names.
const (
	EvJoinRoom       = "joinRoom"
	EvLeaveRoom      = "leaveRoom"
	EvChatMessage    = "chatMessage"
	EvCodeChange     = "codeChange"
	EvLanguageChange = "languageChange"
	EvThemeChange    = "themeChange"
	EvCursorChange   = "cursorChange"
	EvVoiceJoin      = "voice:join"
	EvVoiceLeave     = "voice:leave"
	EvVoiceMute      = "voice:mute"
	EvVoiceSignal    = "voice:signal"
)

// UserDTO is the sender identity attached to broadcasts.
type UserDTO struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
	Role domain.Role   `json:"role,omitempty"`
}

// ParticipantDTO is one entry of a room's participant list. ConnID is a
// representative live connection for direct voice addressing, omitted
// when the participant has no open connection.
type ParticipantDTO struct {
	ID     domain.UserID `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Role   domain.Role   `json:"role"`
	ConnID string        `json:"connId,omitempty"`
}

// SignalPayload is the fixed schema of a relayed WebRTC signal: either
// a session description (offer/answer) or an ICE candidate. The relay
// validates the shape but forwards the raw bytes untouched.
type SignalPayload struct {
	Description *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate   *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

func validSignal(raw json.RawMessage) bool {
	var p SignalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	return p.Description != nil || p.Candidate != nil
}

type errorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
