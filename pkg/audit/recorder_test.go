package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// blockingStorage lets tests hold writes open to fill the recorder buffer.
type blockingStorage struct {
	mu      sync.Mutex
	stored  []*Record
	release chan struct{}
}

func newBlockingStorage() *blockingStorage {
	return &blockingStorage{release: make(chan struct{})}
}

func (s *blockingStorage) Store(ctx context.Context, record *Record) error {
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, record)
	return nil
}

func (s *blockingStorage) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.stored)), nil
}

func (s *blockingStorage) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.stored...), nil
}

func (s *blockingStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *blockingStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	return 0, nil
}

func (s *blockingStorage) Close() error { return nil }

func TestRecorder_AssignsIDAndTimestamp(t *testing.T) {
	storage := newBlockingStorage()
	close(storage.release)

	recorder := NewRecorder(storage, nil)
	recorder.Record(&Record{
		RequestID:   "req-1",
		Environment: "demo",
		Method:      "GET",
		Path:        "/accounts",
		Status:      200,
	})
	recorder.Close()

	records, _ := storage.List(context.Background(), 0)
	if len(records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(records))
	}
	if records[0].ID == "" {
		t.Error("expected recorder to assign a record ID")
	}
	if records[0].Time.IsZero() {
		t.Error("expected recorder to assign a timestamp")
	}
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	storage := newBlockingStorage()

	recorder := NewRecorder(storage, &RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  2,
		WriteTimeout: time.Second,
	})

	// One record may be in-flight in the worker while two sit in the
	// buffer, so overfill well past capacity.
	for i := 0; i < 10; i++ {
		recorder.Record(&Record{RequestID: "req", Method: "GET", Path: "/markets"})
	}

	if recorder.Dropped() == 0 {
		t.Error("expected records to be dropped when buffer is full")
	}

	close(storage.release)
	recorder.Close()
}

func TestRecorder_DisabledRecordsNothing(t *testing.T) {
	storage := newBlockingStorage()
	close(storage.release)

	recorder := NewRecorder(storage, &RecorderConfig{
		Enabled:      false,
		AsyncBuffer:  10,
		WriteTimeout: time.Second,
	})
	recorder.Record(&Record{RequestID: "req-1"})
	recorder.Close()

	count, _ := storage.Count(context.Background())
	if count != 0 {
		t.Errorf("expected no stored records, got %d", count)
	}
}

func TestRecorder_DrainsBufferOnClose(t *testing.T) {
	storage := newBlockingStorage()

	recorder := NewRecorder(storage, &RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  10,
		WriteTimeout: time.Second,
	})
	for i := 0; i < 5; i++ {
		recorder.Record(&Record{RequestID: "req", Method: "GET", Path: "/positions"})
	}

	close(storage.release)
	recorder.Close()

	count, _ := storage.Count(context.Background())
	if count != 5 {
		t.Errorf("expected 5 stored records after drain, got %d", count)
	}
}
