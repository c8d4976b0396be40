// Package cli provides common CLI initialization utilities shared by
// cmd/finform and cmd/journal-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finform/internal/amqp"
	"finform/internal/config"
	"finform/internal/log"
	"finform/internal/services"
	"finform/internal/storage"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the journal database, running pending migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitJournal wires the journal for the web app. When a broker is
// configured records are published for the journal worker and never
// written locally, so a single process owns the database file.
func InitJournal(cfg *config.Config, logger *log.Logger) (*services.JournalService, error) {
	if !cfg.JournalEnabled() {
		logger.Info("Submission journal disabled")
		return services.NewJournalService(nil, nil, logger), nil
	}

	if cfg.PublishesJournal() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect journal broker: %w", err)
		}
		logger.Info("Submission journal publishing to broker",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return services.NewJournalService(nil, client, logger, client), nil
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	logger.Info("Submission journal writing to SQLite", "path", cfg.SQLiteDBPath)
	return services.NewJournalService(repo, nil, logger, repo), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT/SIGTERM after cleanup runs;
// done is closed once cleanup has finished or timeout has elapsed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cleaned := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(cleaned)
		}()

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-cleaned:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
