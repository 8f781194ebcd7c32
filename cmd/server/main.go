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

	"github.com/joho/godotenv"

	"github.com/agenthands/insightflow/internal/backend"
	"github.com/agenthands/insightflow/internal/config"
	"github.com/agenthands/insightflow/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(os.Stderr, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeBackend, err := backend.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize backend", "mode", cfg.Backend.Mode, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	srv := server.NewServer(svc, cfg, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.SetupRouter(),
	}

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr, "backend", cfg.Backend.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
