// Command journal-worker consumes analysis journal records from the broker
// and stores them in SQLite. With -report it prints the stored journal and
// exits instead.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"finform/internal/amqp"
	"finform/internal/cli"
	"finform/internal/config"
	"finform/internal/log"
	"finform/internal/worker"
)

func main() {
	report := flag.Int("report", 0, "print outcome totals and the newest N records, then exit")
	flag.Parse()

	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	if *report > 0 {
		if err := cfg.Validate(); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		if err := writeReport(context.Background(), os.Stdout, repo, *report); err != nil {
			logger.Error("Failed to read journal", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting journal-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := repo.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Error("Journal database unreachable", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	w := worker.NewJournalWorker(repo, client, logger)
	logger.Info("Consuming journal records",
		"queue", cfg.AMQPQueue,
		"path", cfg.SQLiteDBPath)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Journal worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Journal worker stopped gracefully")
}
