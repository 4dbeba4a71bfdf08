package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

const maxCodeAttempts = 5

func (s *Server) handleCreateRoom(c *gin.Context) {
	user := c.MustGet(ctxUser).(*domain.User)

	var room *domain.Room
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := &domain.Room{Code: domain.GenerateRoomCode(), OrganiserID: user.ID}
		err := s.Rooms.Create(c.Request.Context(), candidate)
		if err == nil {
			room = candidate
			break
		}
		if !errors.Is(err, store.ErrCodeTaken) {
			log.Error().Err(err).Str("module", "httpapi").Msg("create room")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "room creation error"})
			return
		}
	}
	if room == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to generate unique room code"})
		return
	}
	if err := s.Rooms.AddParticipant(c.Request.Context(), room.Code, user.ID, domain.RoleOrganiser); err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("add organiser")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "room creation error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "room created", "room": room})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	user := c.MustGet(ctxUser).(*domain.User)
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "room code is required"})
		return
	}
	code := domain.NormalizeCode(req.Code)
	room, err := s.Rooms.GetByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to join room"})
		return
	}
	if _, err := s.Rooms.ParticipantRole(c.Request.Context(), code, user.ID); err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already joined", "room": room})
		return
	}
	if err := s.Rooms.AddParticipant(c.Request.Context(), code, user.ID, domain.RoleParticipant); err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to join room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined room", "room": room})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	user := c.MustGet(ctxUser).(*domain.User)
	code := domain.NormalizeCode(c.Param("code"))

	room, err := s.Rooms.GetByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "room not found"})
		return
	}
	if _, err := s.Rooms.ParticipantRole(c.Request.Context(), code, user.ID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "you are not a participant in this room"})
		return
	}
	parts, err := s.Rooms.Participants(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get room"})
		return
	}
	users := make([]gin.H, 0, len(parts))
	for _, p := range parts {
		users = append(users, gin.H{
			"id":    p.User.ID,
			"name":  p.User.Name,
			"email": p.User.Email,
			"role":  p.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "users": users})
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	user := c.MustGet(ctxUser).(*domain.User)
	code := domain.NormalizeCode(c.Param("code"))

	if _, err := s.Rooms.ParticipantRole(c.Request.Context(), code, user.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "not a participant"})
		return
	}
	if err := s.Rooms.RemoveParticipant(c.Request.Context(), code, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to leave room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}
