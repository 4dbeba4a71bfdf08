// Package httpapi wires the REST surface and the realtime endpoint
// into one gin engine.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/auth"
	"github.com/codepair/collab/internal/config"
	"github.com/codepair/collab/internal/realtime"
	"github.com/codepair/collab/internal/store"
)

type Server struct {
	Users    store.Users
	Rooms    store.Rooms
	Issuer   *auth.Issuer
	Verifier *auth.Verifier
	Secure   bool
}

func SetupRouter(ctx context.Context, cfg *config.Config, srv *Server, ctl *realtime.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", srv.handleRegister)
	authGroup.POST("/login", srv.handleLogin)
	authGroup.POST("/logout", srv.handleLogout)
	authGroup.GET("/me", srv.requireAuth, srv.handleMe)

	roomGroup := api.Group("/room", srv.requireAuth)
	roomGroup.POST("/create", srv.handleCreateRoom)
	roomGroup.POST("/join", srv.handleJoinRoom)
	roomGroup.GET("/:code", srv.handleGetRoom)
	roomGroup.POST("/:code/leave", srv.handleLeaveRoom)

	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "httpapi").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
