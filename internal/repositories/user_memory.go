package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/pkg/auth"
	"github.com/google/uuid"
)

// MemoryUserStore is an in-process credential store, used for demo users and tests
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

// NewMemoryUserStoreFromList parses "name:password[:email],..." and hashes each password with cost
func NewMemoryUserStoreFromList(list string, cost int) (*MemoryUserStore, error) {
	s := NewMemoryUserStore()

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: malformed user entry %q", models.ErrInvalidConfig, parts[0])
		}

		hash, err := auth.HashPasswordWithCost(parts[1], cost)
		if err != nil {
			return nil, err
		}

		user := &models.User{Username: parts[0], PasswordHash: hash}
		if len(parts) == 3 {
			user.Email = parts[2]
		}
		if _, err := s.Create(context.Background(), user); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// GetByUsername returns ErrNotFound for unknown users
func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// Create stores a user; duplicate usernames are rejected
func (s *MemoryUserStore) Create(_ context.Context, user *models.User) (*models.User, error) {
	key := strings.ToLower(user.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return nil, fmt.Errorf("%w: user %s already exists", models.ErrConflict, key)
	}

	now := time.Now().UTC()
	stored := *user
	stored.ID = uuid.NewString()
	stored.Username = key
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[key] = &stored

	out := stored
	return &out, nil
}

// Len returns the number of users
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
