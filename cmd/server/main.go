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

	router "github.com/tastevin/tastevin/internal/adapters/http"
	"github.com/tastevin/tastevin/internal/adapters/store"
	"github.com/tastevin/tastevin/internal/adapters/summary"
	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/config"
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
		log.Error().Err(err).Msg("failed to load config")
	}

	var sessionStore app.Store = app.NopStore{}
	if cfg.DatabaseURL != "" {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.HistoryWindow)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pg.Close()
		sessionStore = pg
	}

	var summarizer app.Summarizer
	if cfg.SummarizerURL != "" {
		summarizer = summary.NewClient(cfg.SummarizerURL)
	}

	limits := app.Limits{
		HistoryWindow: cfg.HistoryWindow,
		MaxMessageLen: cfg.MaxMessageLen,
		ChatLimit:     cfg.ChatLimit,
		ChatWindow:    cfg.ChatWindow,
	}
	rooms := app.NewRoomManager(sessionStore, summarizer, app.DropPolicy{DisconnectAfter: 8}, limits, cfg.EndedRetention)
	go rooms.Run(ctx)

	registry := app.NewRegistry()

	r := router.SetupRouter(ctx, cfg, rooms, registry)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Tastevin server started")
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
