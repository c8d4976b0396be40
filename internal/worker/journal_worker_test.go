package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finform/internal/amqp"
	"finform/internal/core"
)

type memWriter struct {
	mu   sync.Mutex
	seen map[string]core.AnalysisRecord
	err  error
}

func (m *memWriter) InsertRecord(_ context.Context, rec core.AnalysisRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]core.AnalysisRecord)
	}
	if _, ok := m.seen[rec.ID]; ok {
		return false, nil
	}
	m.seen[rec.ID] = rec
	return true, nil
}

// scriptedConsumer delivers its messages once per call, then fails, until
// calls reaches stopAfter, at which point it cancels the run.
type scriptedConsumer struct {
	messages  []*amqp.AnalysisRecordedMessage
	calls     int
	stopAfter int
	cancel    context.CancelFunc
	handleErr []error
}

func (s *scriptedConsumer) ConsumeAnalysisRecorded(ctx context.Context, handler func(context.Context, *amqp.AnalysisRecordedMessage) error) error {
	s.calls++
	for _, m := range s.messages {
		s.handleErr = append(s.handleErr, handler(ctx, m))
	}
	if s.calls >= s.stopAfter {
		s.cancel()
		return ctx.Err()
	}
	return errors.New("connection closed")
}

func message(id string) *amqp.AnalysisRecordedMessage {
	return amqp.NewAnalysisRecordedMessage(core.AnalysisRecord{ID: id, Outcome: core.OutcomeAccepted})
}

func TestJournalWorker_HandleMessage(t *testing.T) {
	w := &memWriter{}
	jw := NewJournalWorker(w, nil, nil)

	if err := jw.HandleMessage(context.Background(), message("a")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := jw.HandleMessage(context.Background(), message("a")); err != nil {
		t.Fatalf("redelivery should be acknowledged, got %v", err)
	}
	if len(w.seen) != 1 {
		t.Fatalf("stored %d records, want 1", len(w.seen))
	}

	w.err = errors.New("disk full")
	if err := jw.HandleMessage(context.Background(), message("b")); err == nil {
		t.Fatal("expected storage error to propagate so the message is requeued")
	}
}

func TestJournalWorker_RunRetriesWithBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := &scriptedConsumer{
		messages:  []*amqp.AnalysisRecordedMessage{message("a"), message("b")},
		stopAfter: 3,
		cancel:    cancel,
	}
	w := &memWriter{}
	jw := NewJournalWorker(w, consumer, nil)

	var attempts []int
	jw.backoff = func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return time.Millisecond
	}

	err := jw.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if consumer.calls != 3 {
		t.Fatalf("consumer called %d times, want 3", consumer.calls)
	}
	if len(w.seen) != 2 {
		t.Fatalf("stored %d records, want 2", len(w.seen))
	}
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Fatalf("backoff attempts = %v, want [0 1]", attempts)
	}
	for _, err := range consumer.handleErr {
		if err != nil {
			t.Fatalf("handler error on redelivery: %v", err)
		}
	}
}

func TestJournalWorker_RunStopsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &scriptedConsumer{stopAfter: 1 << 30, cancel: cancel}
	jw := NewJournalWorker(&memWriter{}, consumer, nil)
	jw.backoff = func(int) time.Duration { return time.Hour }

	done := make(chan error, 1)
	go func() { done <- jw.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop while waiting to retry")
	}
}
