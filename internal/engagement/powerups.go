package engagement

import (
	"context"
	"fmt"

	"github.com/puzzlemind/backend/internal/models"
)

// BuyPowerUp spends available XP on one charge of the given power-up.
// Lifetime XP (and therefore level) is untouched; only the spendable
// balance shrinks.
func (s *Service) BuyPowerUp(ctx context.Context, userID string, kind models.PowerUpKind) (*models.PowerUpResponse, error) {
	if !models.ValidPowerUpKinds[kind] {
		return nil, fmt.Errorf("unknown power-up %q", kind)
	}
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	cost := models.PowerUpCost[kind]
	if err := s.store.SpendXP(ctx, userID, cost); err != nil {
		return nil, err
	}
	if err := s.store.GrantPowerUp(ctx, userID, kind); err != nil {
		return nil, fmt.Errorf("grant power-up: %w", err)
	}
	s.store.LogEvent(ctx, userID, "power_up_purchased", -cost, map[string]interface{}{
		"kind": string(kind),
	})

	return s.powerUpState(ctx, userID, kind)
}

// UsePowerUp consumes one charge and reports the use into the behavioral
// profile, so heavy reliance surfaces as power-up dependency during
// classification.
func (s *Service) UsePowerUp(ctx context.Context, userID string, kind models.PowerUpKind, puzzleID string) (*models.PowerUpResponse, error) {
	if !models.ValidPowerUpKinds[kind] {
		return nil, fmt.Errorf("unknown power-up %q", kind)
	}
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.store.ConsumePowerUp(ctx, userID, kind); err != nil {
		return nil, err
	}
	if s.profiles != nil {
		s.profiles.RecordPowerUp(ctx, userID, kind, puzzleID)
	}
	s.store.LogEvent(ctx, userID, "power_up_used", 0, map[string]interface{}{
		"kind":      string(kind),
		"puzzle_id": puzzleID,
	})

	return s.powerUpState(ctx, userID, kind)
}

func (s *Service) powerUpState(ctx context.Context, userID string, kind models.PowerUpKind) (*models.PowerUpResponse, error) {
	st, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.store.PowerUpsOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.PowerUpResponse{
		Kind:          kind,
		Owned:         owned[kind],
		AvailableXP:   st.TotalXP - st.SpentXP,
		StreakCurrent: st.CurrentStreak,
	}, nil
}
