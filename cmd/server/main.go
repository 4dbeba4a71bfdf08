package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/auth"
	"github.com/codepair/collab/internal/config"
	"github.com/codepair/collab/internal/httpapi"
	"github.com/codepair/collab/internal/realtime"
	"github.com/codepair/collab/internal/store/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()

	users := sqlite.NewUsers(db)
	rooms := sqlite.NewRooms(db)

	issuer := auth.NewIssuer(cfg.Secret, cfg.TokenTTL)
	verifier := auth.NewVerifier(cfg.Secret, users)

	hub := realtime.NewHub(rooms, realtime.NewLimiter(cfg.EventLimit, cfg.EventWindow, nil))
	ctl := &realtime.Controller{
		Hub:        hub,
		Verifier:   verifier,
		Handshakes: realtime.NewLimiter(cfg.HandshakeLimit, cfg.HandshakeWindow, nil),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}

	api := &httpapi.Server{
		Users:    users,
		Rooms:    rooms,
		Issuer:   issuer,
		Verifier: verifier,
		Secure:   cfg.Mode == "release",
	}

	r := httpapi.SetupRouter(ctx, cfg, api, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("collab server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
