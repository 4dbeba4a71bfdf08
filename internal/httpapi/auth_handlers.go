package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/auth"
	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

const cookieMaxAge = 24 * 60 * 60

func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid registration payload"})
		return
	}
	user, err := domain.NewUser(req.Name, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}
	if err := s.Users.Create(c.Request.Context(), user, hash); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
			return
		}
		log.Error().Err(err).Str("module", "httpapi").Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registered", "user": user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid login payload"})
		return
	}
	user, hash, err := s.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	token, err := s.Issuer.Issue(user.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}
	c.SetCookie(auth.CookieName, token, cookieMaxAge, "/", "", s.Secure, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	user := c.MustGet(ctxUser).(*domain.User)
	c.JSON(http.StatusOK, gin.H{"user": user})
}
