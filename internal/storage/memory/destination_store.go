package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// DestinationStore keeps destinations in a mutex-guarded map.
type DestinationStore struct {
	mu    sync.RWMutex
	dests map[string]collector.Destination
}

// NewDestinationStore constructs a DestinationStore seeded with the given
// destinations.
func NewDestinationStore(dests ...collector.Destination) *DestinationStore {
	m := make(map[string]collector.Destination, len(dests))
	for _, d := range dests {
		m[d.ID] = d
	}
	return &DestinationStore{dests: m}
}

// Put inserts or replaces a destination.
func (s *DestinationStore) Put(dest collector.Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dests[dest.ID] = dest
}

// GetDestination returns one destination by id.
func (s *DestinationStore) GetDestination(_ context.Context, id string) (collector.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dest, ok := s.dests[id]
	if !ok {
		return collector.Destination{}, ErrNotFound
	}
	return dest, nil
}

// ListDestinations returns every destination in id order.
func (s *DestinationStore) ListDestinations(_ context.Context) ([]collector.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]collector.Destination, 0, len(s.dests))
	for _, dest := range s.dests {
		out = append(out, dest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MissingDestinations returns the ids with no stored destination.
func (s *DestinationStore) MissingDestinations(_ context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, id := range ids {
		if _, ok := s.dests[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// TouchLastCollection stamps the destination's last collection time.
func (s *DestinationStore) TouchLastCollection(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dest, ok := s.dests[id]
	if !ok {
		return ErrNotFound
	}
	dest.LastCollection = &at
	s.dests[id] = dest
	return nil
}

// StaleDestinations lists destinations never collected or collected before
// the cutoff, in id order.
func (s *DestinationStore) StaleDestinations(_ context.Context, cutoff time.Time) ([]collector.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []collector.Destination
	for _, dest := range s.dests {
		if dest.LastCollection == nil || dest.LastCollection.Before(cutoff) {
			out = append(out, dest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
