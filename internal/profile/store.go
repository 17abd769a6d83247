package profile

import (
	"context"
	"errors"

	"github.com/puzzlemind/backend/internal/models"
)

// ErrNotFound is returned when no signature is stored for a user.
var ErrNotFound = errors.New("profile not found")

// Store persists behavioral signatures keyed by user ID. Implementations
// must treat Save as all-or-nothing: a failed save leaves the previous
// signature intact.
type Store interface {
	Load(ctx context.Context, userID string) (*models.BehavioralSignature, error)
	Save(ctx context.Context, sig *models.BehavioralSignature) error

	// Size returns the storage footprint in bytes.
	Size(ctx context.Context) (int64, error)
}
