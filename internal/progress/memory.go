package progress

import (
	"context"
	"sort"
	"sync"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// MemoryStore is a mutex-guarded in-process Store. It serves the
// single-process deployment; swapping in a shared store only requires
// another Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]*Snapshot
	clock collector.Clock
	sinks []Sink
}

// NewMemoryStore builds an empty MemoryStore. Sinks are notified of every
// phase transition the store records.
func NewMemoryStore(clock collector.Clock, sinks ...Sink) *MemoryStore {
	return &MemoryStore{
		state: make(map[string]*Snapshot),
		clock: clock,
		sinks: sinks,
	}
}

// Begin resets the destination to a fresh initializing state.
func (m *MemoryStore) Begin(_ context.Context, jobID, destinationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now().UTC()
	m.state[destinationID] = &Snapshot{
		DestinationID: destinationID,
		JobID:         jobID,
		Phase:         PhaseInitializing,
		History:       []Transition{{Phase: PhaseInitializing, At: now}},
		UpdatedAt:     now,
	}
	m.notify(destinationID, PhaseInitializing)
	return nil
}

// SetPhase appends a phase transition for the destination.
func (m *MemoryStore) SetPhase(_ context.Context, destinationID string, phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.ensure(destinationID)
	now := m.clock.Now().UTC()
	snap.Phase = phase
	snap.History = append(snap.History, Transition{Phase: phase, At: now})
	snap.UpdatedAt = now
	m.notify(destinationID, phase)
	return nil
}

// SetError marks the destination failed with a message.
func (m *MemoryStore) SetError(_ context.Context, destinationID string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.ensure(destinationID)
	now := m.clock.Now().UTC()
	snap.Phase = PhaseError
	snap.ErrorText = message
	snap.History = append(snap.History, Transition{Phase: PhaseError, At: now})
	snap.UpdatedAt = now
	m.notify(destinationID, PhaseError)
	return nil
}

// AddCounts accumulates found counts.
func (m *MemoryStore) AddCounts(_ context.Context, destinationID string, news, events int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.ensure(destinationID)
	snap.NewsFound += news
	snap.EventsFound += events
	snap.UpdatedAt = m.clock.Now().UTC()
	return nil
}

// Snapshot returns a copy of the destination's state.
func (m *MemoryStore) Snapshot(_ context.Context, destinationID string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.state[destinationID]
	if !ok {
		return Snapshot{}, false, nil
	}
	return copySnapshot(snap), true, nil
}

// Snapshots lists every tracked destination ordered by id.
func (m *MemoryStore) Snapshots(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.state))
	for _, snap := range m.state {
		out = append(out, copySnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out, nil
}

func (m *MemoryStore) notify(destinationID string, phase Phase) {
	for _, sink := range m.sinks {
		sink.ObserveTransition(destinationID, phase)
	}
}

func (m *MemoryStore) ensure(destinationID string) *Snapshot {
	snap, ok := m.state[destinationID]
	if !ok {
		snap = &Snapshot{DestinationID: destinationID, Phase: PhaseInitializing}
		m.state[destinationID] = snap
	}
	return snap
}

func copySnapshot(snap *Snapshot) Snapshot {
	out := *snap
	out.History = append([]Transition(nil), snap.History...)
	return out
}
