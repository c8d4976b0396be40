package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finform/internal/amqp"
	"finform/internal/core"
	"finform/internal/log"
)

// RecordWriter persists journal records.
type RecordWriter interface {
	InsertRecord(ctx context.Context, rec core.AnalysisRecord) (bool, error)
}

// Consumer delivers journal messages until ctx ends or the connection drops.
type Consumer interface {
	ConsumeAnalysisRecorded(ctx context.Context, handler func(context.Context, *amqp.AnalysisRecordedMessage) error) error
}

// stableAfter is how long a subscription must stay up before a later
// failure starts the backoff from scratch.
const stableAfter = time.Minute

// JournalWorker moves journal records from the broker into storage.
type JournalWorker struct {
	writer   RecordWriter
	consumer Consumer
	logger   *log.Logger
	backoff  func(attempt int) time.Duration
}

func NewJournalWorker(writer RecordWriter, consumer Consumer, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		writer:   writer,
		consumer: consumer,
		logger:   logger.WithComponent(log.ComponentWorker),
		backoff:  amqp.ExponentialBackoff,
	}
}

// HandleMessage stores one record. Redelivered records are acknowledged
// without writing twice.
func (w *JournalWorker) HandleMessage(ctx context.Context, msg *amqp.AnalysisRecordedMessage) error {
	inserted, err := w.writer.InsertRecord(ctx, msg.Record)
	if err != nil {
		return fmt.Errorf("store journal record %s: %w", msg.Record.ID, err)
	}
	if !inserted {
		w.logger.DebugContext(ctx, "Journal record already stored", "id", msg.Record.ID)
		return nil
	}
	w.logger.DebugContext(ctx, "Journal record stored",
		"id", msg.Record.ID,
		log.FieldOutcome, msg.Record.Outcome)
	return nil
}

// Run consumes until ctx is cancelled, re-subscribing with exponential
// backoff whenever consumption stops.
func (w *JournalWorker) Run(ctx context.Context) error {
	attempt := 0
	for {
		started := time.Now()
		err := w.consumer.ConsumeAnalysisRecorded(ctx, w.HandleMessage)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}

		if time.Since(started) > stableAfter {
			attempt = 0
		}
		delay := w.backoff(attempt)
		attempt++

		w.logger.WarnContext(ctx, "Journal consumption interrupted, retrying",
			log.FieldError, err,
			log.FieldAttempt, attempt,
			"retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
