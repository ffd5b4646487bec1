package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/uniflow/uniflow/internal/mail"
	"github.com/uniflow/uniflow/internal/tasks"
	"github.com/uniflow/uniflow/pkg/config"
	"github.com/uniflow/uniflow/pkg/queue"
	"github.com/uniflow/uniflow/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting Uniflow worker")

	// Email delivery is optional, notifications are logged and dropped
	// without a Resend key.
	sender, err := mail.NewSender(&cfg.Email)
	if err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			logger.Warn("RESEND_API_KEY not set, notifications will be dropped")
		} else {
			logger.Error("failed to initialize mail sender", "error", err)
			os.Exit(1)
		}
		sender = nil
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Register handlers
	handler := tasks.NewHandler(logger, sender)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	logger.Info("worker stopped")
}
