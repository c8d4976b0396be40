package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finform/internal/analysis"
	"finform/internal/cache"
	"finform/internal/cli"
	"finform/internal/core"
	apphttp "finform/internal/http"
	"finform/internal/log"
	"finform/internal/render"
	"finform/internal/session"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	formatter, err := render.NewFormatter(cfg.CurrencyLocale, cfg.CurrencySymbol)
	if err != nil {
		logger.Error("Invalid currency settings", log.FieldError, err, "locale", cfg.CurrencyLocale)
		os.Exit(1)
	}

	analyzer, err := analysis.NewClient(analysis.Config{
		BaseURL: cfg.AnalyzerBaseURL,
		Timeout: cfg.AnalyzerTimeout,
	})
	if err != nil {
		logger.Error("Failed to create analysis client", log.FieldError, err)
		os.Exit(1)
	}

	sessions := session.NewStore(cfg.SessionMaxEntries, cfg.SessionTTL)
	sweeper := cache.NewManager(func(removed int) {
		logger.Debug("Expired sessions removed", "count", removed)
	})
	sweeper.Register(sessions)
	sweeper.StartCleanup(sessionSweepInterval)

	journal, err := cli.InitJournal(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize journal", log.FieldError, err, "backend", cfg.JournalBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Analyzer:     analyzer,
		Validator:    core.NewValidator(cfg.SalaryFloor),
		Sessions:     sessions,
		Formatter:    formatter,
		Journal:      journal,
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		sweeper.Stop()
		if err := journal.Close(); err != nil {
			logger.Error("Journal close error", log.FieldError, err)
		}
	})

	logger.Info("Starting finform server",
		"port", cfg.Port,
		"analyzer", analyzer.Endpoint(),
		"journal", cfg.JournalBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
