package baseline

import (
	"sync"

	"finsight/internal/core"
)

// Store keeps the most recent baseline per user in memory. Writes replace
// the whole entry (last complete write wins); readers never see a
// half-written baseline. There is no expiry: the store grows with the
// number of distinct users and lives for the process lifetime.
type Store struct {
	mu        sync.RWMutex
	baselines map[string]core.Baseline
}

func NewStore() *Store {
	return &Store{baselines: make(map[string]core.Baseline)}
}

// Put replaces any prior baseline for the user atomically.
func (s *Store) Put(b core.Baseline) {
	// Copy the months slice so later caller mutations can't leak in.
	months := append([]core.MonthlyAggregate(nil), b.Months...)
	b.Months = months

	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[b.UserID] = b
}

// Get returns a copy of the user's baseline, or false when the user has
// never trained.
func (s *Store) Get(userID string) (core.Baseline, bool) {
	s.mu.RLock()
	b, ok := s.baselines[userID]
	s.mu.RUnlock()
	if !ok {
		return core.Baseline{}, false
	}
	b.Months = append([]core.MonthlyAggregate(nil), b.Months...)
	return b, true
}

// Len returns the number of users with a trained baseline.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.baselines)
}
