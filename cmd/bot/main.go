package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleaning-moscow/liza-bot/internal/api"
	"github.com/cleaning-moscow/liza-bot/internal/bot"
	"github.com/cleaning-moscow/liza-bot/internal/config"
	"github.com/cleaning-moscow/liza-bot/internal/core"
	"github.com/cleaning-moscow/liza-bot/internal/gdrive"
	"github.com/cleaning-moscow/liza-bot/internal/store"
)

const driveSyncInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	llm := core.NewLLMService(cfg)
	knowledge := core.NewKnowledgeService(db)
	chat := core.NewChatService(db, knowledge, llm, cfg.ContextMaxChars)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var google *gdrive.Client
	if cfg.GoogleCredentialsPath != "" {
		google, err = gdrive.New(ctx, cfg.GoogleCredentialsPath)
		if err != nil {
			slog.Error("failed to initialize google client", "error", err)
			os.Exit(1)
		}
	}

	if google != nil && cfg.GoogleDriveFolderID != "" {
		go google.RunPeriodicSync(ctx, cfg.GoogleDriveFolderID, knowledge, cfg.AdminChatID, driveSyncInterval)
	} else {
		slog.Warn("GOOGLE_DRIVE_FOLDER_ID not set, automatic drive sync disabled")
	}

	tgBot, err := bot.New(cfg, db, chat, knowledge, llm, google)
	if err != nil {
		slog.Error("failed to create telegram bot", "error", err)
		os.Exit(1)
	}

	var srv *http.Server
	if cfg.AdminAPIEnabled() {
		srv = &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      api.NewRouter(api.NewAPIHandler(cfg, db)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			slog.Info("admin API listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("admin API failed", "error", err)
			}
		}()
	} else {
		slog.Info("admin API disabled (ADMIN_API_TOKEN or JWT_SECRET not set)")
	}

	botErr := make(chan error, 1)
	go func() {
		botErr <- tgBot.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-botErr:
		if err != nil {
			slog.Error("telegram bot stopped", "error", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin API shutdown failed", "error", err)
		}
	}
	slog.Info("bot exiting")
}
