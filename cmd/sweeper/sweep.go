package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/config"
	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/notify"
	"github.com/lalithlochan/solebox/internal/observ"
)

const sweepTimeout = 2 * time.Minute

type sweeper interface {
	Sweep(ctx context.Context) (int64, error)
	CountExpired(ctx context.Context) (int64, error)
}

type sweepResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
	ExpiredCount int64  `json:"expiredCount,omitempty"`
}

func runSweep(ctx context.Context, out io.Writer, databaseURL string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel, "sweeper")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("SWEEPER_DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	database, err := db.New(ctx, db.Config{
		URL:      databaseURL,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		AppName:  "solebox-sweeper",
		MaxConns: 2,
	}, logger)
	if err != nil {
		_ = report(out, sweepResult{Message: "Failed to connect to database"})
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	svc := notify.NewService(db.NewRepository(database, logger), nil, logger)
	if dryRun {
		return preview(ctx, svc, out, logger)
	}
	return sweep(ctx, svc, out, logger)
}

// sweep runs one pass and writes the JSON result. The error is returned
// after the result is written so the scheduler sees both.
func sweep(ctx context.Context, svc sweeper, out io.Writer, logger *zap.Logger) error {
	deleted, err := svc.Sweep(ctx)
	if err != nil {
		logger.Error("sweep failed", zap.Error(err))
		_ = report(out, sweepResult{Message: "Failed to clean up expired notifications"})
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Info("sweep finished", zap.Int64("deleted", deleted))
	return report(out, sweepResult{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d expired notifications", deleted),
		DeletedCount: deleted,
	})
}

// preview reports how many rows a sweep would delete without deleting them.
// deletedCount stays 0 since nothing was removed.
func preview(ctx context.Context, svc sweeper, out io.Writer, logger *zap.Logger) error {
	pending, err := svc.CountExpired(ctx)
	if err != nil {
		logger.Error("dry run failed", zap.Error(err))
		_ = report(out, sweepResult{Message: "Failed to count expired notifications"})
		return fmt.Errorf("count expired: %w", err)
	}

	logger.Info("dry run finished", zap.Int64("expired", pending))
	return report(out, sweepResult{
		Success:      true,
		Message:      fmt.Sprintf("Dry run: %d expired notifications would be deleted", pending),
		ExpiredCount: pending,
	})
}

func report(out io.Writer, res sweepResult) error {
	enc := json.NewEncoder(out)
	return enc.Encode(res)
}
