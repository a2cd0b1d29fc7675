package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kanban/internal/ai"
	"kanban/internal/config"
	"kanban/internal/server"
	"kanban/internal/storage/sqlite"
	"kanban/internal/util"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("KANBAN_CONFIG", "config.yaml"), "Path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("unable to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.OpenAI.APIKey == "" {
		logger.Warn("no OpenAI API key configured; AI endpoints will report unavailable")
	}

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	completer := ai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL,
		time.Duration(cfg.OpenAI.TimeoutSec)*time.Second)

	srv := server.New(store, completer, logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
