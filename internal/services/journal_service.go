package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"finform/internal/amqp"
	"finform/internal/core"
	"finform/internal/log"
)

const recordTimeout = 3 * time.Second

// RecordWriter stores journal records directly.
type RecordWriter interface {
	InsertRecord(ctx context.Context, rec core.AnalysisRecord) (bool, error)
}

// RecordPublisher hands journal records to the journal worker.
type RecordPublisher interface {
	PublishAnalysisRecorded(ctx context.Context, msg *amqp.AnalysisRecordedMessage) error
}

// JournalService records submission outcomes. With a publisher, records go
// through the broker and the writer, if any, is the fallback; otherwise they
// are written directly. With neither, recording is a no-op.
type JournalService struct {
	writer    RecordWriter
	publisher RecordPublisher
	closers   []io.Closer
	logger    *log.Logger
	now       func() time.Time
}

// NewJournalService wires the journal. writer and publisher may be nil.
// closers are closed by Close in order.
func NewJournalService(writer RecordWriter, publisher RecordPublisher, logger *log.Logger, closers ...io.Closer) *JournalService {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalService{
		writer:    writer,
		publisher: publisher,
		closers:   closers,
		logger:    logger.WithComponent(log.ComponentJournal),
		now:       time.Now,
	}
}

// Enabled reports whether records go anywhere.
func (s *JournalService) Enabled() bool {
	return s != nil && (s.writer != nil || s.publisher != nil)
}

// Record stores rec, assigning an ID and timestamp when missing. The caller's
// cancellation does not abort recording: a client that disconnects after
// submitting still gets its outcome journaled.
func (s *JournalService) Record(ctx context.Context, rec core.AnalysisRecord) error {
	if !s.Enabled() {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = s.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if s.publisher != nil {
		err := s.publisher.PublishAnalysisRecorded(ctx, amqp.NewAnalysisRecordedMessage(rec))
		if err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "Failed to publish journal record",
			log.FieldOperation, log.OpPublish,
			log.FieldOutcome, rec.Outcome,
			log.FieldError, err)
		if s.writer == nil {
			return fmt.Errorf("publish journal record: %w", err)
		}
	}

	if _, err := s.writer.InsertRecord(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write journal record",
			log.FieldOperation, log.OpRecord,
			log.FieldOutcome, rec.Outcome,
			log.FieldError, err)
		return fmt.Errorf("write journal record: %w", err)
	}
	return nil
}

// Close closes the underlying storage and broker connections.
func (s *JournalService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close journal: %w", errors.Join(errs...))
	}
	return nil
}
