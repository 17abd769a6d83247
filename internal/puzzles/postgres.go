package puzzles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

const puzzleColumns = `id, puzzle_id, type, question, options, correct_index, difficulty,
	difficulty_score, explanation, quality_score, model_used, times_served, times_correct, created_at`

// PostgresStore backs the inventory with Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rows []models.Puzzle) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, p := range rows {
		opts, err := json.Marshal(p.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO puzzles
			 (puzzle_id, type, question, options, correct_index, difficulty,
			  difficulty_score, explanation, quality_score, model_used)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (puzzle_id) DO NOTHING`,
			p.PuzzleID, p.Type, p.Question, opts, p.CorrectIdx, p.Difficulty,
			p.DifficultyScore, p.Explanation, p.QualityScore, p.ModelUsed,
		)
		if err != nil {
			return 0, fmt.Errorf("insert puzzle: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ByPuzzleID(ctx context.Context, puzzleID string) (*models.Puzzle, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM puzzles WHERE puzzle_id = $1`, puzzleColumns),
		puzzleID,
	)

	p, err := scanPuzzle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get puzzle: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CandidatesForUser(ctx context.Context, userID string, servedAfter time.Time, limit int) ([]models.Puzzle, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM puzzles p
		 WHERE NOT EXISTS (
		     SELECT 1 FROM served_puzzles sp
		     WHERE sp.user_id = $1 AND sp.puzzle_id = p.puzzle_id AND sp.served_at > $2
		 )
		 ORDER BY p.times_served ASC, p.id
		 LIMIT $3`, prefixColumns("p")),
		userID, servedAfter, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan puzzle: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkServed(ctx context.Context, userID, puzzleID, category string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO served_puzzles (user_id, puzzle_id, category) VALUES ($1, $2, $3)`,
		userID, puzzleID, category,
	)
	if err != nil {
		return fmt.Errorf("mark served: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE puzzles SET times_served = times_served + 1 WHERE puzzle_id = $1`,
		puzzleID,
	)
	return err
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, puzzleID string, correct bool) error {
	if !correct {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE puzzles SET times_correct = times_correct + 1 WHERE puzzle_id = $1`,
		puzzleID,
	)
	return err
}

func (s *PostgresStore) FreshCount(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM puzzles WHERE type = $1 AND difficulty = $2 AND times_served = 0`,
		pt, label,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("fresh count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) QueueGeneration(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_queue (puzzle_type, difficulty, count_needed)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (puzzle_type, difficulty) WHERE status = 'pending'
		 DO UPDATE SET count_needed = EXCLUDED.count_needed, updated_at = NOW()`,
		pt, label, count,
	)
	return err
}

func (s *PostgresStore) PendingGenerations(ctx context.Context, limit int) ([]GenerationTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, puzzle_type, difficulty, count_needed, status, created_at
		 FROM generation_queue WHERE status = 'pending'
		 ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("pending generations: %w", err)
	}
	defer rows.Close()

	var tasks []GenerationTask
	for rows.Next() {
		var t GenerationTask
		if err := rows.Scan(&t.ID, &t.Type, &t.Difficulty, &t.Count, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) UpdateGenerationStatus(ctx context.Context, id int64, status string, errMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_queue SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, errMsg, id,
	)
	return err
}

// scanPuzzle reads one inventory row through any Scan-shaped function.
func scanPuzzle(scan func(dest ...interface{}) error) (*models.Puzzle, error) {
	var p models.Puzzle
	var optsRaw []byte
	if err := scan(&p.ID, &p.PuzzleID, &p.Type, &p.Question, &optsRaw, &p.CorrectIdx,
		&p.Difficulty, &p.DifficultyScore, &p.Explanation, &p.QualityScore,
		&p.ModelUsed, &p.TimesServed, &p.TimesCorrect, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optsRaw, &p.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return &p, nil
}

// prefixColumns qualifies the shared column list with a table alias.
func prefixColumns(alias string) string {
	return alias + ".id, " + alias + ".puzzle_id, " + alias + ".type, " + alias + ".question, " +
		alias + ".options, " + alias + ".correct_index, " + alias + ".difficulty, " +
		alias + ".difficulty_score, " + alias + ".explanation, " + alias + ".quality_score, " +
		alias + ".model_used, " + alias + ".times_served, " + alias + ".times_correct, " + alias + ".created_at"
}
