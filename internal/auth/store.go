package auth

import (
	"context"
	"errors"

	"github.com/puzzlemind/backend/internal/models"
)

var (
	// ErrEmailTaken reports a duplicate email on registration.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken reports a username collision. Callers with a generated
	// username regenerate and retry.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotFound reports a missing user.
	ErrNotFound = errors.New("user not found")
)

// Store persists user accounts. Create fills in the row ID and timestamps on
// the passed user.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByPublicID(ctx context.Context, publicID string) (*models.User, error)
}
