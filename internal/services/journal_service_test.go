package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finform/internal/amqp"
	"finform/internal/core"
)

type fakeWriter struct {
	records []core.AnalysisRecord
	err     error
	ctxErr  error
}

func (f *fakeWriter) InsertRecord(ctx context.Context, rec core.AnalysisRecord) (bool, error) {
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return false, f.err
	}
	f.records = append(f.records, rec)
	return true, nil
}

type fakePublisher struct {
	messages []*amqp.AnalysisRecordedMessage
	err      error
}

func (f *fakePublisher) PublishAnalysisRecorded(_ context.Context, msg *amqp.AnalysisRecordedMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestJournalService_Disabled(t *testing.T) {
	s := NewJournalService(nil, nil, nil)
	if s.Enabled() {
		t.Fatal("journal without backends should be disabled")
	}
	if err := s.Record(context.Background(), core.AnalysisRecord{Outcome: core.OutcomeAccepted}); err != nil {
		t.Fatalf("Record() on disabled journal = %v", err)
	}

	var nilService *JournalService
	if nilService.Enabled() {
		t.Fatal("nil journal should be disabled")
	}
}

func TestJournalService_WritesDirectly(t *testing.T) {
	w := &fakeWriter{}
	s := NewJournalService(w, nil, nil)
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Record(ctx, core.AnalysisRecord{Outcome: core.OutcomeValidationFailed, Rule: core.RuleIncome}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(w.records) != 1 {
		t.Fatalf("got %d records", len(w.records))
	}
	rec := w.records[0]
	if rec.ID == "" {
		t.Error("expected generated id")
	}
	if !rec.RecordedAt.Equal(fixed) {
		t.Errorf("RecordedAt = %v, want %v", rec.RecordedAt, fixed)
	}
	if w.ctxErr != nil {
		t.Errorf("caller cancellation leaked into the write: %v", w.ctxErr)
	}
}

func TestJournalService_PrefersPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &fakePublisher{}
	s := NewJournalService(w, p, nil)

	rec := core.AnalysisRecord{ID: "fixed", Outcome: core.OutcomeAccepted}
	if err := s.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(p.messages) != 1 || p.messages[0].Record.ID != "fixed" {
		t.Fatalf("messages = %+v", p.messages)
	}
	if len(w.records) != 0 {
		t.Fatal("writer should not be used when publish succeeds")
	}
}

func TestJournalService_FallsBackToWriter(t *testing.T) {
	w := &fakeWriter{}
	p := &fakePublisher{err: amqp.ErrCircuitOpen}
	s := NewJournalService(w, p, nil)

	if err := s.Record(context.Background(), core.AnalysisRecord{Outcome: core.OutcomeTransportFailed}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(w.records) != 1 {
		t.Fatal("expected fallback write")
	}
}

func TestJournalService_ReportsFailures(t *testing.T) {
	boom := errors.New("boom")

	s := NewJournalService(nil, &fakePublisher{err: boom}, nil)
	if err := s.Record(context.Background(), core.AnalysisRecord{Outcome: core.OutcomeAccepted}); !errors.Is(err, boom) {
		t.Errorf("publish-only failure = %v", err)
	}

	s = NewJournalService(&fakeWriter{err: boom}, nil, nil)
	if err := s.Record(context.Background(), core.AnalysisRecord{Outcome: core.OutcomeAccepted}); !errors.Is(err, boom) {
		t.Errorf("write failure = %v", err)
	}
}

func TestJournalService_Close(t *testing.T) {
	boom := errors.New("boom")
	a, b := &fakeCloser{}, &fakeCloser{err: boom}
	s := NewJournalService(nil, nil, nil, a, nil, b)

	err := s.Close()
	if !errors.Is(err, boom) {
		t.Fatalf("Close() = %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("every closer should be closed")
	}
}
