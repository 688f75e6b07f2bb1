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

	router "github.com/telecord/telecord/internal/adapters/http"
	wsignal "github.com/telecord/telecord/internal/adapters/signal"
	"github.com/telecord/telecord/internal/app"
	"github.com/telecord/telecord/internal/auth"
	"github.com/telecord/telecord/internal/config"
	"github.com/telecord/telecord/internal/storage"
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

	mode, err := auth.ParseMode(cfg.AuthMode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth mode")
	}
	if mode == auth.ModeEnforced && cfg.BotToken == "" {
		log.Fatal().Msg("auth_mode=enforced requires BOT_TOKEN")
	}
	resolver := auth.NewResolver(cfg.BotToken, mode)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	store, err := storage.Connect(ctx, cfg.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect storage")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	orch := app.NewOrchestrator()
	ctl := wsignal.NewController(orch, tokens)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod

	handlers := &router.Handlers{Store: store, Tokens: tokens, Cfg: cfg}
	r := router.SetupRouter(ctx, cfg, handlers, ctl, resolver)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Telecord server started")
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
