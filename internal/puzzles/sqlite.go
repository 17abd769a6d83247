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

// SQLiteStore backs the inventory with an embedded SQLite database.
// Timestamps are stored as RFC3339Nano text.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Insert(ctx context.Context, rows []models.Puzzle) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	inserted := 0
	for _, p := range rows {
		opts, err := json.Marshal(p.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO puzzles
			 (puzzle_id, type, question, options, correct_index, difficulty,
			  difficulty_score, explanation, quality_score, model_used, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (puzzle_id) DO NOTHING`,
			p.PuzzleID, p.Type, p.Question, string(opts), p.CorrectIdx, p.Difficulty,
			p.DifficultyScore, p.Explanation, p.QualityScore, p.ModelUsed, now,
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

func (s *SQLiteStore) ByPuzzleID(ctx context.Context, puzzleID string) (*models.Puzzle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, puzzle_id, type, question, options, correct_index, difficulty,
		        difficulty_score, explanation, quality_score, model_used,
		        times_served, times_correct, created_at
		 FROM puzzles WHERE puzzle_id = ?`,
		puzzleID,
	)

	p, err := sqliteScanPuzzle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get puzzle: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) CandidatesForUser(ctx context.Context, userID string, servedAfter time.Time, limit int) ([]models.Puzzle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.puzzle_id, p.type, p.question, p.options, p.correct_index, p.difficulty,
		        p.difficulty_score, p.explanation, p.quality_score, p.model_used,
		        p.times_served, p.times_correct, p.created_at
		 FROM puzzles p
		 WHERE NOT EXISTS (
		     SELECT 1 FROM served_puzzles sp
		     WHERE sp.user_id = ? AND sp.puzzle_id = p.puzzle_id AND sp.served_at > ?
		 )
		 ORDER BY p.times_served ASC, p.id
		 LIMIT ?`,
		userID, servedAfter.UTC().Format(time.RFC3339Nano), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Puzzle
	for rows.Next() {
		p, err := sqliteScanPuzzle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan puzzle: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkServed(ctx context.Context, userID, puzzleID, category string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO served_puzzles (user_id, puzzle_id, category, served_at) VALUES (?, ?, ?, ?)`,
		userID, puzzleID, category, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mark served: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE puzzles SET times_served = times_served + 1 WHERE puzzle_id = ?`,
		puzzleID,
	)
	return err
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, puzzleID string, correct bool) error {
	if !correct {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE puzzles SET times_correct = times_correct + 1 WHERE puzzle_id = ?`,
		puzzleID,
	)
	return err
}

func (s *SQLiteStore) FreshCount(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM puzzles WHERE type = ? AND difficulty = ? AND times_served = 0`,
		pt, label,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("fresh count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) QueueGeneration(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel, count int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_queue (puzzle_type, difficulty, count_needed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (puzzle_type, difficulty) WHERE status = 'pending'
		 DO UPDATE SET count_needed = excluded.count_needed, updated_at = excluded.updated_at`,
		pt, label, count, now, now,
	)
	return err
}

func (s *SQLiteStore) PendingGenerations(ctx context.Context, limit int) ([]GenerationTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, puzzle_type, difficulty, count_needed, status, created_at
		 FROM generation_queue WHERE status = 'pending'
		 ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("pending generations: %w", err)
	}
	defer rows.Close()

	var tasks []GenerationTask
	for rows.Next() {
		var t GenerationTask
		var createdStr string
		if err := rows.Scan(&t.ID, &t.Type, &t.Difficulty, &t.Count, &t.Status, &createdStr); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateGenerationStatus(ctx context.Context, id int64, status string, errMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_queue SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

func sqliteScanPuzzle(scan func(dest ...interface{}) error) (*models.Puzzle, error) {
	var p models.Puzzle
	var optsRaw []byte
	var createdStr string
	if err := scan(&p.ID, &p.PuzzleID, &p.Type, &p.Question, &optsRaw, &p.CorrectIdx,
		&p.Difficulty, &p.DifficultyScore, &p.Explanation, &p.QualityScore,
		&p.ModelUsed, &p.TimesServed, &p.TimesCorrect, &createdStr); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optsRaw, &p.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &p, nil
}
