package engagement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/models"
)

// Users may bank at most this many streak freezes at once.
const maxStreakFreezes = 3

// ProfileRecorder feeds power-up usage into the behavioral profile so
// dependency shows up in classification. The recommendation engine
// satisfies it.
type ProfileRecorder interface {
	RecordPowerUp(ctx context.Context, userID string, kind models.PowerUpKind, puzzleID string)
}

// Service owns the XP economy: per-puzzle awards, daily streaks, and the
// power-up shop. It is the engine's Rewarder, so recording a response
// already keeps XP, streak, and counters current.
type Service struct {
	store    Store
	profiles ProfileRecorder
	logger   *zap.Logger

	now func() time.Time
}

func NewService(store Store, profiles ProfileRecorder, logger *zap.Logger) *Service {
	return &Service{store: store, profiles: profiles, logger: logger, now: time.Now}
}

// AwardPuzzleXP grants XP for one correct answer: a difficulty-band base,
// a bonus for solving above the user's skill level, a speed bonus, and the
// daily streak multiplier on top. Returns the XP granted; failures log and
// return zero rather than failing the response that earned it.
func (s *Service) AwardPuzzleXP(ctx context.Context, userID string, difficulty, skill float64, solveTimeMs int) int {
	st, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Error("engagement state unavailable", zap.String("user_id", userID), zap.Error(err))
		return 0
	}

	base := BaseXP(difficulty)
	challenge := ChallengeBonus(skill, difficulty)
	speed := SpeedBonus(solveTimeMs)
	multiplier := StreakMultiplier(st.CurrentStreak)
	total := ApplyStreakMultiplier(base+challenge+speed, multiplier)

	if err := s.store.AddXP(ctx, userID, total); err != nil {
		s.logger.Error("failed to add xp", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	s.store.LogEvent(ctx, userID, "puzzle_correct", total, map[string]interface{}{
		"base":       base,
		"challenge":  challenge,
		"speed":      speed,
		"multiplier": multiplier,
	})
	return total
}

// UpdateStreak advances the daily streak for today's activity. A banked
// freeze covers exactly one missed day; crossing a 7-day milestone banks a
// new freeze, and named milestones grant one-time XP.
func (s *Service) UpdateStreak(ctx context.Context, userID string) {
	st, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Error("engagement state unavailable", zap.String("user_id", userID), zap.Error(err))
		return
	}

	today := s.now().UTC().Truncate(24 * time.Hour)

	if st.LastActiveDate != nil {
		last := st.LastActiveDate.Truncate(24 * time.Hour)
		if last.Equal(today) {
			return
		}

		days := int(today.Sub(last).Hours() / 24)
		switch {
		case days == 1:
			st.CurrentStreak++
			st.StreakFreezeActive = false
		case days == 2 && st.StreakFreezesOwned > 0:
			// Missed one day with a freeze banked; the streak survives
			// and the flag marks the save until the next normal day.
			st.CurrentStreak++
			st.StreakFreezesOwned--
			st.StreakFreezeActive = true
		default:
			st.CurrentStreak = 1
			st.StreakFreezeActive = false
		}
	} else {
		st.CurrentStreak = 1
	}

	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}

	if st.CurrentStreak%7 == 0 && st.StreakFreezesOwned < maxStreakFreezes {
		st.StreakFreezesOwned++
	}

	if xp := MilestoneXP(st.CurrentStreak); xp > 0 {
		if err := s.store.AddXP(ctx, userID, xp); err != nil {
			s.logger.Error("failed to add milestone xp", zap.String("user_id", userID), zap.Error(err))
		} else {
			s.store.LogEvent(ctx, userID, "streak_milestone", xp, map[string]interface{}{
				"streak": st.CurrentStreak,
			})
		}
	}

	if err := s.store.UpdateStreak(ctx, userID, st.CurrentStreak, st.LongestStreak, today,
		st.StreakFreezeActive, st.StreakFreezesOwned); err != nil {
		s.logger.Error("failed to update streak", zap.String("user_id", userID), zap.Error(err))
	}
}

// IncrementCounters bumps the lifetime solved/correct totals.
func (s *Service) IncrementCounters(ctx context.Context, userID string, correct bool) {
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		s.logger.Error("engagement state unavailable", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.store.IncrementCounters(ctx, userID, correct); err != nil {
		s.logger.Error("failed to increment counters", zap.String("user_id", userID), zap.Error(err))
	}
}

// Summary assembles the engagement view of one user.
func (s *Service) Summary(ctx context.Context, userID string) (*models.EngagementSummaryResponse, error) {
	st, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.store.PowerUpsOwned(ctx, userID)
	if err != nil {
		owned = map[models.PowerUpKind]int{}
	}

	return &models.EngagementSummaryResponse{
		TotalXP:             st.TotalXP,
		AvailableXP:         st.TotalXP - st.SpentXP,
		Level:               LevelForXP(st.TotalXP),
		CurrentStreak:       st.CurrentStreak,
		LongestStreak:       st.LongestStreak,
		StreakFreezeActive:  st.StreakFreezeActive,
		StreakFreezesOwned:  st.StreakFreezesOwned,
		PowerUpsOwned:       owned,
		PuzzlesSolvedTotal:  st.PuzzlesSolvedTotal,
		PuzzlesCorrectTotal: st.PuzzlesCorrectTotal,
	}, nil
}
