package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// ErrInsufficientXP is returned when a purchase costs more XP than the user
// has left to spend.
var ErrInsufficientXP = errors.New("insufficient xp")

// ErrPowerUpNotOwned is returned when a use request names a power-up the
// user holds no charges of.
var ErrPowerUpNotOwned = errors.New("power-up not owned")

// Store persists per-user engagement state. XP and power-up mutations must
// be atomic so concurrent requests cannot double-spend; SpendXP and
// ConsumePowerUp fail with the sentinels above instead of going negative.
type Store interface {
	GetOrCreate(ctx context.Context, userID string) (*models.UserEngagementState, error)
	UpdateStreak(ctx context.Context, userID string, current, longest int, lastActive time.Time, freezeActive bool, freezesOwned int) error
	AddXP(ctx context.Context, userID string, amount int) error
	SpendXP(ctx context.Context, userID string, amount int) error
	IncrementCounters(ctx context.Context, userID string, correct bool) error
	GrantPowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error
	ConsumePowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error
	PowerUpsOwned(ctx context.Context, userID string) (map[models.PowerUpKind]int, error)
	LogEvent(ctx context.Context, userID, eventType string, xpAmount int, metadata map[string]interface{}) error
}
