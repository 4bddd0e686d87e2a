package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salescopilot/amsgen/internal/api"
	"github.com/salescopilot/amsgen/internal/body"
	"github.com/salescopilot/amsgen/internal/bus"
	"github.com/salescopilot/amsgen/internal/config"
	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/dojo"
	"github.com/salescopilot/amsgen/internal/extract"
	"github.com/salescopilot/amsgen/internal/pipeline"
	"github.com/salescopilot/amsgen/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("amsgen starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// DashScope client
	if cfg.DashScopeAPIKey == "" {
		slog.Error("DASHSCOPE_API_KEY is required")
		os.Exit(1)
	}
	llm := dashscope.NewClient(cfg.DashScopeAPIKey)
	slog.Info("dashscope client ready",
		"extract_model", cfg.ExtractModel,
		"generate_model", cfg.GenerateModel,
	)

	// Pipeline stages
	ext := extract.New(llm, cfg.ExtractModel, slog.Default())
	composer := body.NewComposer(llm, cfg.GenerateModel, slog.Default())

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Pipeline runner
	runner := pipeline.New(db, ext, composer, busClient, slog.Default())

	// Subscribe to completed calls
	if err := busClient.Subscribe(bus.SubjectCallCompleted, runner.HandleCallCompleted); err != nil {
		slog.Error("failed to subscribe to call events", "error", err)
		os.Exit(1)
	}

	// Role-play sessions
	dojoMgr := dojo.NewManager(llm, cfg.DojoModel)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, runner, db, dojoMgr)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("amsgen ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("amsgen stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
