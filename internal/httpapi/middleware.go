package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ctxUser = "user"

// requireAuth resolves the bearer credential (header or cookie) and
// stores the user on the request context.
func (s *Server) requireAuth(c *gin.Context) {
	user, err := s.Verifier.Authenticate(c.Request.Context(), c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication failed"})
		return
	}
	c.Set(ctxUser, user)
	c.Next()
}
