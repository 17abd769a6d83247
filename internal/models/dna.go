package models

import "time"

// PuzzleDNA is the normalized difficulty/engagement profile of one puzzle
// identity. DNA is shared across users and refined from aggregate outcomes;
// a user's profile references DNA entries but never owns them.
type PuzzleDNA struct {
	PuzzleID       string     `json:"puzzle_id"`
	PuzzleType     PuzzleType `json:"puzzle_type"`
	Difficulty     float64    `json:"difficulty"`
	UserEngagement float64    `json:"user_engagement"`
	SuccessRate    float64    `json:"success_rate"`
	Observations   int        `json:"observations"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// PerformanceObservation carries one user's outcome on a puzzle back into
// the shared DNA blend.
type PerformanceObservation struct {
	Correct     bool    `json:"correct"`
	Engagement  float64 `json:"engagement"`
	SolveTimeMs int     `json:"solve_time_ms"`
}
