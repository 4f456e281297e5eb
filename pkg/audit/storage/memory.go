package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"capgw/pkg/audit"
)

// MemoryStorage implements the Storage interface using an in-memory slice.
// This implementation is intended for testing and ephemeral deployments.
type MemoryStorage struct {
	records []*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists an audit record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid mutation by the caller
	recordCopy := *record
	s.records = append(s.records, &recordCopy)

	return nil
}

// Count returns the total number of stored records.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.records)), nil
}

// List returns up to limit records, newest first.
func (s *MemoryStorage) List(ctx context.Context, limit int) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := make([]*audit.Record, len(s.records))
	copy(sorted, s.records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	results := make([]*audit.Record, len(sorted))
	for i, record := range sorted {
		recordCopy := *record
		results[i] = &recordCopy
	}

	return results, nil
}

// DeleteBefore removes records older than the cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.Time.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept

	return deleted, nil
}

// DeleteOldest removes the n oldest records.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.records) == 0 {
		return 0, nil
	}

	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].Time.Before(s.records[j].Time)
	})

	if n > int64(len(s.records)) {
		n = int64(len(s.records))
	}
	s.records = s.records[n:]

	return n, nil
}

// Close releases the backend. It is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
