package models

import "time"

// ── Core Structs ───────────────────────────────────────

// Recommendation is the engine's answer to a next-puzzle request: the chosen
// puzzle, its DNA at selection time, and a machine-checkable rationale.
type Recommendation struct {
	RecommendationID    string          `json:"recommendation_id"`
	UserID              string          `json:"user_id"`
	Puzzle              PuzzleCandidate `json:"puzzle"`
	DNA                 PuzzleDNA       `json:"dna"`
	Category            PoolCategory    `json:"category"`
	SelectionReason     string          `json:"selection_reason"`
	PredictedSuccess    float64         `json:"predicted_success"`
	PredictedEngagement float64         `json:"predicted_engagement"`
	StrategicValue      float64         `json:"strategic_value"`
	State               UserState       `json:"state"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ResponseReport is the engine-facing record of one completed puzzle. Type
// and Difficulty are hints from the caller's inventory row; the engine
// prefers the live DNA entry when one exists.
type ResponseReport struct {
	PuzzleID    string     `json:"puzzle_id"`
	Type        PuzzleType `json:"type,omitempty"`
	Difficulty  float64    `json:"difficulty,omitempty"`
	Correct     bool       `json:"correct"`
	SolveTimeMs int        `json:"solve_time_ms"`
	Confidence  float64    `json:"confidence"`
	Engagement  float64    `json:"engagement"`
	UsedPowerUp bool       `json:"used_power_up"`
	At          time.Time  `json:"at,omitempty"`
}

// ── Request Types ─────────────────────────────────────

type NextPuzzleRequest struct {
	PoolSize int `json:"pool_size,omitempty"`
}

type RecordResponseRequest struct {
	PuzzleID      string   `json:"puzzle_id"`
	SelectedIndex int      `json:"selected_index"`
	SolveTimeMs   int      `json:"solve_time_ms"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Engagement    *float64 `json:"engagement,omitempty"`
	UsedPowerUp   bool     `json:"used_power_up"`
}

// ── Response Types ────────────────────────────────────

type NextPuzzleResponse struct {
	Puzzle              ServedPuzzle `json:"puzzle"`
	RecommendationID    string       `json:"recommendation_id"`
	Category            PoolCategory `json:"category"`
	SelectionReason     string       `json:"selection_reason"`
	PredictedSuccess    float64      `json:"predicted_success"`
	PredictedEngagement float64      `json:"predicted_engagement"`
	State               UserState    `json:"state"`
}

type RecordResponseResponse struct {
	Correct     bool    `json:"correct"`
	CorrectIdx  int     `json:"correct_index"`
	Explanation string  `json:"explanation,omitempty"`
	SkillLevel  float64 `json:"skill_level"`
	XPAwarded   int     `json:"xp_awarded"`
}

type RetentionRiskResponse struct {
	Risk  float64   `json:"risk"`
	State UserState `json:"state"`
	AtMs  int64     `json:"computed_at_ms"`
}

// MetricsResponse mirrors the dashboard contract; field names follow the
// consumer's casing, unlike the rest of the API.
type MetricsResponse struct {
	UserMetrics   UserMetrics   `json:"userMetrics"`
	SystemMetrics SystemMetrics `json:"systemMetrics"`
}

type UserMetrics struct {
	TotalSessions      int     `json:"totalSessions"`
	TotalPuzzlesSolved int     `json:"totalPuzzlesSolved"`
	OverallAccuracy    float64 `json:"overallAccuracy"`
	CurrentSkillLevel  float64 `json:"currentSkillLevel"`
}

type SystemMetrics struct {
	StorageSize int64 `json:"storageSize"`
}
