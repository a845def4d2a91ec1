package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory. It is the default when no
// Redis URL is configured; runs are lost when the process exits.
type MemoryStore struct {
	ttl time.Duration

	mu   sync.Mutex
	runs map[string]memoryEntry
}

type memoryEntry struct {
	snap     Snapshot
	storedAt time.Time
}

// NewMemoryStore returns a store whose entries expire ttl after their last
// update.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		runs: make(map[string]memoryEntry),
	}
}

// Put stores snap, resetting the run's expiry clock.
func (s *MemoryStore) Put(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[snap.RunID] = memoryEntry{snap: snap, storedAt: time.Now()}
	return nil
}

// Get returns the latest snapshot for runID, or (nil, nil) when the run is
// unknown or past its TTL. Expired entries are removed on access.
func (s *MemoryStore) Get(_ context.Context, runID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	if time.Since(e.storedAt) > s.ttl {
		delete(s.runs, runID)
		return nil, nil
	}
	snap := e.snap
	return &snap, nil
}

// Delete removes the run's snapshot if present.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Sweep drops all expired runs and reports how many were removed. The server
// calls this on a timer so abandoned runs do not pile up.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.runs {
		if time.Since(e.storedAt) > s.ttl {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}
