package models

import "time"

type PowerUpKind string

const (
	PowerUpHint         PowerUpKind = "hint"
	PowerUpSkip         PowerUpKind = "skip"
	PowerUpTimeFreeze   PowerUpKind = "time_freeze"
	PowerUpSecondChance PowerUpKind = "second_chance"
)

var ValidPowerUpKinds = map[PowerUpKind]bool{
	PowerUpHint:         true,
	PowerUpSkip:         true,
	PowerUpTimeFreeze:   true,
	PowerUpSecondChance: true,
}

// PowerUpCost maps each power-up kind to its XP price.
var PowerUpCost = map[PowerUpKind]int{
	PowerUpHint:         20,
	PowerUpSkip:         35,
	PowerUpTimeFreeze:   30,
	PowerUpSecondChance: 50,
}

// ── Core Engagement Structs ───────────────────────────

type UserEngagementState struct {
	UserID              string              `json:"user_id"`
	TotalXP             int64               `json:"total_xp"`
	SpentXP             int64               `json:"spent_xp"`
	Level               int                 `json:"level"`
	CurrentStreak       int                 `json:"current_streak"`
	LongestStreak       int                 `json:"longest_streak"`
	LastActiveDate      *time.Time          `json:"last_active_date,omitempty"`
	StreakFreezeActive  bool                `json:"streak_freeze_active"`
	StreakFreezesOwned  int                 `json:"streak_freezes_owned"`
	PowerUpsOwned       map[PowerUpKind]int `json:"power_ups_owned"`
	PuzzlesSolvedTotal  int                 `json:"puzzles_solved_total"`
	PuzzlesCorrectTotal int                 `json:"puzzles_correct_total"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

type XPEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	XPAmount  int       `json:"xp_amount"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Request Types ─────────────────────────────────────

type BuyPowerUpRequest struct {
	Kind PowerUpKind `json:"kind"`
}

type UsePowerUpRequest struct {
	Kind     PowerUpKind `json:"kind"`
	PuzzleID string      `json:"puzzle_id,omitempty"`
}

// ── Response Types ────────────────────────────────────

type EngagementSummaryResponse struct {
	TotalXP             int64               `json:"total_xp"`
	AvailableXP         int64               `json:"available_xp"`
	Level               int                 `json:"level"`
	CurrentStreak       int                 `json:"current_streak"`
	LongestStreak       int                 `json:"longest_streak"`
	StreakFreezeActive  bool                `json:"streak_freeze_active"`
	StreakFreezesOwned  int                 `json:"streak_freezes_owned"`
	PowerUpsOwned       map[PowerUpKind]int `json:"power_ups_owned"`
	PuzzlesSolvedTotal  int                 `json:"puzzles_solved_total"`
	PuzzlesCorrectTotal int                 `json:"puzzles_correct_total"`
}

type XPAwardBreakdown struct {
	Base             int     `json:"base"`
	ChallengeBonus   int     `json:"challenge_bonus"`
	SpeedBonus       int     `json:"speed_bonus"`
	Subtotal         int     `json:"subtotal"`
	StreakMultiplier float64 `json:"streak_multiplier"`
	Total            int     `json:"total"`
}

type PowerUpResponse struct {
	Kind          PowerUpKind `json:"kind"`
	Owned         int         `json:"owned"`
	AvailableXP   int64       `json:"available_xp"`
	StreakCurrent int         `json:"streak_current,omitempty"`
}
