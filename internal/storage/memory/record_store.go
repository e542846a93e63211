package memory

import (
	"context"
	"sync"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// RecordStore keeps news and event rows in mutex-guarded maps keyed by
// destination id.
type RecordStore struct {
	mu     sync.RWMutex
	news   map[string][]collector.NewsRecord
	events map[string][]collector.EventRecord
}

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		news:   make(map[string][]collector.NewsRecord),
		events: make(map[string][]collector.EventRecord),
	}
}

// ListNews returns the stored news rows for one destination.
func (s *RecordStore) ListNews(_ context.Context, destinationID string) ([]collector.NewsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]collector.NewsRecord(nil), s.news[destinationID]...), nil
}

// InsertNews appends one news row.
func (s *RecordStore) InsertNews(_ context.Context, rec collector.NewsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news[rec.DestinationID] = append(s.news[rec.DestinationID], rec)
	return nil
}

// ListEvents returns the stored event rows for one destination.
func (s *RecordStore) ListEvents(_ context.Context, destinationID string) ([]collector.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]collector.EventRecord(nil), s.events[destinationID]...), nil
}

// InsertEvent appends one event row.
func (s *RecordStore) InsertEvent(_ context.Context, rec collector.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[rec.DestinationID] = append(s.events[rec.DestinationID], rec)
	return nil
}
