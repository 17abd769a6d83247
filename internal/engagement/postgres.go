package engagement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// PostgresStore backs engagement state with Postgres. The guarded UPDATEs in
// SpendXP and ConsumePowerUp are the concurrency barrier: two racing
// purchases cannot both succeed on the last charge of XP.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (*models.UserEngagementState, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_engagement (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert engagement: %w", err)
	}

	var st models.UserEngagementState
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, total_xp, spent_xp, current_streak, longest_streak,
		        last_active_date, streak_freeze_active, streak_freezes_owned,
		        puzzles_solved_total, puzzles_correct_total, created_at, updated_at
		 FROM user_engagement WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID, &st.TotalXP, &st.SpentXP, &st.CurrentStreak, &st.LongestStreak,
		&st.LastActiveDate, &st.StreakFreezeActive, &st.StreakFreezesOwned,
		&st.PuzzlesSolvedTotal, &st.PuzzlesCorrectTotal, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) UpdateStreak(ctx context.Context, userID string, current, longest int, lastActive time.Time, freezeActive bool, freezesOwned int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET
		    current_streak = $2, longest_streak = $3, last_active_date = $4,
		    streak_freeze_active = $5, streak_freezes_owned = $6, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, current, longest, lastActive, freezeActive, freezesOwned,
	)
	return err
}

func (s *PostgresStore) AddXP(ctx context.Context, userID string, amount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET total_xp = total_xp + $2, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, amount,
	)
	return err
}

func (s *PostgresStore) SpendXP(ctx context.Context, userID string, amount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET spent_xp = spent_xp + $2, updated_at = NOW()
		 WHERE user_id = $1 AND total_xp - spent_xp >= $2`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("spend xp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientXP
	}
	return nil
}

func (s *PostgresStore) IncrementCounters(ctx context.Context, userID string, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET
		    puzzles_solved_total = puzzles_solved_total + 1,
		    puzzles_correct_total = puzzles_correct_total + $2,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, correctInc,
	)
	return err
}

func (s *PostgresStore) GrantPowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO power_ups (user_id, kind, owned) VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, kind) DO UPDATE SET owned = power_ups.owned + 1`,
		userID, kind,
	)
	return err
}

func (s *PostgresStore) ConsumePowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE power_ups SET owned = owned - 1
		 WHERE user_id = $1 AND kind = $2 AND owned > 0`,
		userID, kind,
	)
	if err != nil {
		return fmt.Errorf("consume power-up: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPowerUpNotOwned
	}
	return nil
}

func (s *PostgresStore) PowerUpsOwned(ctx context.Context, userID string) (map[models.PowerUpKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, owned FROM power_ups WHERE user_id = $1 AND owned > 0`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get power-ups: %w", err)
	}
	defer rows.Close()

	out := make(map[models.PowerUpKind]int)
	for rows.Next() {
		var kind models.PowerUpKind
		var owned int
		if err := rows.Scan(&kind, &owned); err != nil {
			return nil, fmt.Errorf("scan power-up: %w", err)
		}
		out[kind] = owned
	}
	return out, rows.Err()
}

func (s *PostgresStore) LogEvent(ctx context.Context, userID, eventType string, xpAmount int, metadata map[string]interface{}) error {
	var meta *string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			meta = &str
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		userID, eventType, xpAmount, meta,
	)
	return err
}
