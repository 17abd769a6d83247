// Package puzzles manages the generated-puzzle inventory: storage, serving
// bookkeeping, stock monitoring, and the background generation queue.
package puzzles

import (
	"context"
	"errors"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

var ErrNotFound = errors.New("puzzle not found")

// GenerationTask is one pending unit of work for the generation worker.
type GenerationTask struct {
	ID         int64
	Type       models.PuzzleType
	Difficulty models.DifficultyLabel
	Count      int
	Status     string
	CreatedAt  time.Time
}

// Store is the persistence surface for the puzzle inventory. Implementations
// exist for Postgres and SQLite plus an in-memory store for tests.
type Store interface {
	// Insert saves generated puzzles, skipping rows whose puzzle_id already
	// exists. It returns the number of rows actually inserted.
	Insert(ctx context.Context, rows []models.Puzzle) (int, error)

	ByPuzzleID(ctx context.Context, puzzleID string) (*models.Puzzle, error)

	// CandidatesForUser returns servable puzzles, least-served first,
	// excluding anything served to the user after servedAfter.
	CandidatesForUser(ctx context.Context, userID string, servedAfter time.Time, limit int) ([]models.Puzzle, error)

	MarkServed(ctx context.Context, userID, puzzleID, category string) error
	RecordOutcome(ctx context.Context, puzzleID string, correct bool) error

	// FreshCount reports how many never-served puzzles exist for one
	// type and difficulty label.
	FreshCount(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel) (int, error)

	QueueGeneration(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel, count int) error
	PendingGenerations(ctx context.Context, limit int) ([]GenerationTask, error)
	UpdateGenerationStatus(ctx context.Context, id int64, status string, errMsg *string) error
}
