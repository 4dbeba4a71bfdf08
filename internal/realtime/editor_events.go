package realtime

import (
	"github.com/codepair/collab/internal/domain"
)

// Editor events merge into the room snapshot last-writer-wins and fan
// out to everyone but the sender. The roomCode in the payload must
// match the sender's current room or the event is ignored.

func (h *Hub) HandleCodeChange(c *Connection, rawCode, text string, timestamp int64) {
	code, ok := c.Room()
	if !ok || domain.NormalizeCode(rawCode) != code {
		return
	}
	h.editor.ApplyCode(code, text)
	h.broadcast(code, struct {
		Event     string          `json:"event"`
		UserID    domain.UserID   `json:"userId"`
		UserName  string          `json:"userName"`
		RoomCode  domain.RoomCode `json:"roomCode"`
		Code      string          `json:"code"`
		Timestamp int64           `json:"timestamp"`
	}{
		Event:     "codeChange",
		UserID:    c.User.ID,
		UserName:  c.User.DisplayName(),
		RoomCode:  code,
		Code:      text,
		Timestamp: timestamp,
	}, c.ID)
}

func (h *Hub) HandleLanguageChange(c *Connection, rawCode, language string) {
	code, ok := c.Room()
	if !ok || domain.NormalizeCode(rawCode) != code {
		return
	}
	h.editor.ApplyLanguage(code, language)
	h.broadcast(code, struct {
		Event    string          `json:"event"`
		UserID   domain.UserID   `json:"userId"`
		UserName string          `json:"userName"`
		RoomCode domain.RoomCode `json:"roomCode"`
		Language string          `json:"language"`
	}{
		Event:    "languageChange",
		UserID:   c.User.ID,
		UserName: c.User.DisplayName(),
		RoomCode: code,
		Language: language,
	}, c.ID)
}

func (h *Hub) HandleThemeChange(c *Connection, rawCode, theme string) {
	code, ok := c.Room()
	if !ok || domain.NormalizeCode(rawCode) != code {
		return
	}
	h.editor.ApplyTheme(code, theme)
	h.broadcast(code, struct {
		Event    string          `json:"event"`
		UserID   domain.UserID   `json:"userId"`
		UserName string          `json:"userName"`
		RoomCode domain.RoomCode `json:"roomCode"`
		Theme    string          `json:"theme"`
	}{
		Event:    "themeChange",
		UserID:   c.User.ID,
		UserName: c.User.DisplayName(),
		RoomCode: code,
		Theme:    theme,
	}, c.ID)
}
