package auth

import (
	"context"
	"sync"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// MemoryStore holds accounts in process memory. Used in tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  []*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
		if user.Username != "" && u.Username == user.Username {
			return ErrUsernameTaken
		}
	}

	s.nextID++
	user.ID = s.nextID
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users = append(s.users, &stored)
	return nil
}

func (s *MemoryStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.PublicID == publicID {
			copied := *u
			copied.Password = ""
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}
