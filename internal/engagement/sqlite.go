package engagement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// SQLiteStore backs engagement state with an embedded SQLite database.
// Timestamps are stored as RFC3339Nano text.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, userID string) (*models.UserEngagementState, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_engagement (user_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert engagement: %w", err)
	}

	var st models.UserEngagementState
	var lastActive, createdStr, updatedStr sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, total_xp, spent_xp, current_streak, longest_streak,
		        last_active_date, streak_freeze_active, streak_freezes_owned,
		        puzzles_solved_total, puzzles_correct_total, created_at, updated_at
		 FROM user_engagement WHERE user_id = ?`,
		userID,
	).Scan(&st.UserID, &st.TotalXP, &st.SpentXP, &st.CurrentStreak, &st.LongestStreak,
		&lastActive, &st.StreakFreezeActive, &st.StreakFreezesOwned,
		&st.PuzzlesSolvedTotal, &st.PuzzlesCorrectTotal, &createdStr, &updatedStr)
	if err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}

	if lastActive.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastActive.String); err == nil {
			st.LastActiveDate = &t
		}
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr.String)
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr.String)
	return &st, nil
}

func (s *SQLiteStore) UpdateStreak(ctx context.Context, userID string, current, longest int, lastActive time.Time, freezeActive bool, freezesOwned int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET
		    current_streak = ?, longest_streak = ?, last_active_date = ?,
		    streak_freeze_active = ?, streak_freezes_owned = ?, updated_at = ?
		 WHERE user_id = ?`,
		current, longest, lastActive.UTC().Format(time.RFC3339Nano),
		freezeActive, freezesOwned, time.Now().UTC().Format(time.RFC3339Nano), userID,
	)
	return err
}

func (s *SQLiteStore) AddXP(ctx context.Context, userID string, amount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET total_xp = total_xp + ?, updated_at = ?
		 WHERE user_id = ?`,
		amount, time.Now().UTC().Format(time.RFC3339Nano), userID,
	)
	return err
}

func (s *SQLiteStore) SpendXP(ctx context.Context, userID string, amount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET spent_xp = spent_xp + ?, updated_at = ?
		 WHERE user_id = ? AND total_xp - spent_xp >= ?`,
		amount, time.Now().UTC().Format(time.RFC3339Nano), userID, amount,
	)
	if err != nil {
		return fmt.Errorf("spend xp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientXP
	}
	return nil
}

func (s *SQLiteStore) IncrementCounters(ctx context.Context, userID string, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_engagement SET
		    puzzles_solved_total = puzzles_solved_total + 1,
		    puzzles_correct_total = puzzles_correct_total + ?,
		    updated_at = ?
		 WHERE user_id = ?`,
		correctInc, time.Now().UTC().Format(time.RFC3339Nano), userID,
	)
	return err
}

func (s *SQLiteStore) GrantPowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO power_ups (user_id, kind, owned) VALUES (?, ?, 1)
		 ON CONFLICT (user_id, kind) DO UPDATE SET owned = owned + 1`,
		userID, kind,
	)
	return err
}

func (s *SQLiteStore) ConsumePowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE power_ups SET owned = owned - 1
		 WHERE user_id = ? AND kind = ? AND owned > 0`,
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

func (s *SQLiteStore) PowerUpsOwned(ctx context.Context, userID string) (map[models.PowerUpKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, owned FROM power_ups WHERE user_id = ? AND owned > 0`,
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

func (s *SQLiteStore) LogEvent(ctx context.Context, userID, eventType string, xpAmount int, metadata map[string]interface{}) error {
	var meta *string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			meta = &str
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, eventType, xpAmount, meta, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
