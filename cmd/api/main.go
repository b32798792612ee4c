package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oneskyhq/onesky/backend/internal/config"
	"github.com/oneskyhq/onesky/backend/internal/handler"
	"github.com/oneskyhq/onesky/backend/internal/handler/chatbot"
	"github.com/oneskyhq/onesky/backend/internal/service/directory"
	"github.com/oneskyhq/onesky/backend/internal/service/responder"
	"github.com/oneskyhq/onesky/backend/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Log)

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.DBPath).Msg("failed to open catalog database")
	}
	defer store.Close()

	if err := store.SeedIfEmpty(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed catalog database")
	}

	directorySvc := directory.NewService(store, logger)
	responderSvc := responder.NewService(directorySvc, logger)

	router := handler.NewRouter(directorySvc, responderSvc, chatbot.Options{
		MessagesPerMinute: cfg.Chat.MessagesPerMinute,
		RateBurst:         cfg.Chat.RateBurst,
	}, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", serverCfg.Addr).Msg("onesky backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
