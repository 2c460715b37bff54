package repositories

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
)

// identityLog is one identity's attempts in insertion order plus a
// reference count per device fingerprint.
type identityLog struct {
	attempts []models.LoginAttempt
	devices  map[string]int
}

// MemoryHistoryStore keeps login history in process memory.
// Reads return snapshots, so a sequence handed to a caller is unaffected by later writes.
type MemoryHistoryStore struct {
	mu   sync.RWMutex
	logs map[string]*identityLog
}

// NewMemoryHistoryStore creates an empty, ready-to-use store
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{logs: make(map[string]*identityLog)}
}

// Record appends an attempt to the identity's log
func (s *MemoryHistoryStore) Record(_ context.Context, attempt *models.LoginAttempt) error {
	if attempt == nil || attempt.Identity == "" {
		return fmt.Errorf("%w: attempt without identity", models.ErrBadRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[attempt.Identity]
	if !ok {
		l = &identityLog{devices: make(map[string]int)}
		s.logs[attempt.Identity] = l
	}

	l.attempts = append(l.attempts, *attempt)
	if fp := attempt.DeviceFingerprint; fp != nil && *fp != "" {
		l.devices[*fp]++
	}
	return nil
}

// RecentSince returns the attempts recorded strictly after since
func (s *MemoryHistoryStore) RecentSince(_ context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[identity]
	if !ok {
		return slices.Values([]models.LoginAttempt(nil)), nil
	}

	recent := make([]models.LoginAttempt, 0)
	for i := len(l.attempts) - 1; i >= 0; i-- {
		if l.attempts[i].AttemptTime.After(since) {
			recent = append(recent, l.attempts[i])
		}
	}
	return slices.Values(recent), nil
}

// KnownDevices returns the distinct non-empty fingerprints in the identity's log
func (s *MemoryHistoryStore) KnownDevices(_ context.Context, identity string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{})
	if l, ok := s.logs[identity]; ok {
		for fp := range l.devices {
			out[fp] = struct{}{}
		}
	}
	return out, nil
}

// Count returns the number of attempts in the identity's log
func (s *MemoryHistoryStore) Count(_ context.Context, identity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.logs[identity]; ok {
		return len(l.attempts), nil
	}
	return 0, nil
}

// Attempts returns a copy of the identity's log in insertion order
func (s *MemoryHistoryStore) Attempts(identity string) []models.LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.logs[identity]; ok {
		return slices.Clone(l.attempts)
	}
	return nil
}

// Prune drops every attempt recorded before the cutoff and returns how many were removed
func (s *MemoryHistoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for identity, l := range s.logs {
		kept := l.attempts[:0]
		for _, a := range l.attempts {
			if a.AttemptTime.Before(before) {
				removed++
				if fp := a.DeviceFingerprint; fp != nil && *fp != "" {
					if l.devices[*fp]--; l.devices[*fp] <= 0 {
						delete(l.devices, *fp)
					}
				}
				continue
			}
			kept = append(kept, a)
		}
		clear(l.attempts[len(kept):])
		l.attempts = kept

		if len(l.attempts) == 0 {
			delete(s.logs, identity)
		}
	}
	return removed, nil
}

// Ping always succeeds
func (s *MemoryHistoryStore) Ping(context.Context) error {
	return nil
}
