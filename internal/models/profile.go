package models

import "time"

// Ring buffer capacities for the behavioral signature history fields.
// Buffers evict oldest entries first once full.
const (
	SessionHistoryCap  = 50
	RecentWindowCap    = 20
	SeenPuzzleCap      = 100
	StateTransitionCap = 10
	PowerUpLogCap      = 100
)

// MaxSkillStep bounds how far a single observation can move any skill
// estimate, preventing single-sample whiplash.
const MaxSkillStep = 0.15

// SessionGap is the idle interval after which the next response starts a
// new session. Session boundaries are derived from event timestamps; no
// running clock is involved.
const SessionGap = 30 * time.Minute

type DimensionEstimate struct {
	Level   float64 `json:"level"`
	Samples int     `json:"samples"`
}

type EngagementPattern struct {
	AvgResponseMs      float64 `json:"avg_response_ms"`
	HesitationTendency float64 `json:"hesitation_tendency"`
	PowerUpRate        float64 `json:"power_up_rate"`
	FlowDurationMin    float64 `json:"flow_duration_min"`
	OptimalChallenge   float64 `json:"optimal_challenge"`
}

type ResponseRecord struct {
	PuzzleID    string     `json:"puzzle_id"`
	Type        PuzzleType `json:"type"`
	Difficulty  float64    `json:"difficulty"`
	Correct     bool       `json:"correct"`
	SolveTimeMs int        `json:"solve_time_ms"`
	Confidence  float64    `json:"confidence"`
	Engagement  float64    `json:"engagement"`
	UsedPowerUp bool       `json:"used_power_up"`
	SessionID   string     `json:"session_id"`
	At          time.Time  `json:"at"`
}

type SessionRecord struct {
	SessionID     string     `json:"session_id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Puzzles       int        `json:"puzzles"`
	Correct       int        `json:"correct"`
	AvgResponseMs float64    `json:"avg_response_ms"`
	AvgEngagement float64    `json:"avg_engagement"`
	PowerUpsUsed  int        `json:"power_ups_used"`
}

func (s *SessionRecord) Accuracy() float64 {
	if s.Puzzles == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Puzzles)
}

type SeenPuzzle struct {
	PuzzleID    string     `json:"puzzle_id"`
	Type        PuzzleType `json:"type"`
	Difficulty  float64    `json:"difficulty"`
	LastCorrect bool       `json:"last_correct"`
	LastSeen    time.Time  `json:"last_seen"`
}

type StateTransition struct {
	From UserState `json:"from"`
	To   UserState `json:"to"`
	At   time.Time `json:"at"`
}

type PowerUpEvent struct {
	Kind     PowerUpKind `json:"kind"`
	PuzzleID string      `json:"puzzle_id,omitempty"`
	At       time.Time   `json:"at"`
}

// BehavioralSignature is the durable model of one user: skill estimates,
// engagement pattern, bounded history, and counters. Exactly one exists per
// user and it is mutated only through the engine's response-ingestion path.
type BehavioralSignature struct {
	UserID     string                                   `json:"user_id"`
	SkillLevel float64                                  `json:"skill_level"`
	Dimensions map[CognitiveDimension]DimensionEstimate `json:"dimensions"`
	Engagement EngagementPattern                        `json:"engagement"`

	Sessions         []SessionRecord   `json:"sessions"`
	RecentResponses  []ResponseRecord  `json:"recent_responses"`
	SeenPuzzles      []SeenPuzzle      `json:"seen_puzzles"`
	StateTransitions []StateTransition `json:"state_transitions"`
	PowerUpEvents    []PowerUpEvent    `json:"power_up_events"`
	CurrentSession   *SessionRecord    `json:"current_session,omitempty"`

	TotalSessions         int `json:"total_sessions"`
	TotalPuzzlesSolved    int `json:"total_puzzles_solved"`
	TotalCorrect          int `json:"total_correct"`
	ConsecutiveFailures   int `json:"consecutive_failures"`
	LowSatisfactionStreak int `json:"low_satisfaction_streak"`

	LastState UserState `json:"last_state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBehavioralSignature returns a signature with neutral estimates, used
// for brand-new users and as the degrade target when storage is down.
func NewBehavioralSignature(userID string, now time.Time) *BehavioralSignature {
	dims := make(map[CognitiveDimension]DimensionEstimate, len(AllCognitiveDimensions))
	for _, d := range AllCognitiveDimensions {
		dims[d] = DimensionEstimate{Level: 0.5}
	}
	return &BehavioralSignature{
		UserID:     userID,
		SkillLevel: 0.5,
		Dimensions: dims,
		Engagement: EngagementPattern{OptimalChallenge: 0.5},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ── Ring Buffer Operations ────────────────────────────

func (b *BehavioralSignature) AppendResponse(r ResponseRecord) {
	b.RecentResponses = append(b.RecentResponses, r)
	if n := len(b.RecentResponses) - RecentWindowCap; n > 0 {
		b.RecentResponses = b.RecentResponses[n:]
	}
}

func (b *BehavioralSignature) AppendSession(s SessionRecord) {
	b.Sessions = append(b.Sessions, s)
	if n := len(b.Sessions) - SessionHistoryCap; n > 0 {
		b.Sessions = b.Sessions[n:]
	}
}

// TouchSeen records that a puzzle was answered, updating the existing entry
// in place when the identity is already tracked.
func (b *BehavioralSignature) TouchSeen(p SeenPuzzle) {
	for i := range b.SeenPuzzles {
		if b.SeenPuzzles[i].PuzzleID == p.PuzzleID {
			b.SeenPuzzles[i] = p
			return
		}
	}
	b.SeenPuzzles = append(b.SeenPuzzles, p)
	if n := len(b.SeenPuzzles) - SeenPuzzleCap; n > 0 {
		b.SeenPuzzles = b.SeenPuzzles[n:]
	}
}

func (b *BehavioralSignature) AppendTransition(t StateTransition) {
	b.StateTransitions = append(b.StateTransitions, t)
	if n := len(b.StateTransitions) - StateTransitionCap; n > 0 {
		b.StateTransitions = b.StateTransitions[n:]
	}
}

func (b *BehavioralSignature) AppendPowerUp(e PowerUpEvent) {
	b.PowerUpEvents = append(b.PowerUpEvents, e)
	if n := len(b.PowerUpEvents) - PowerUpLogCap; n > 0 {
		b.PowerUpEvents = b.PowerUpEvents[n:]
	}
}

// ── Derived Accessors ─────────────────────────────────

func (b *BehavioralSignature) OverallAccuracy() float64 {
	if b.TotalPuzzlesSolved == 0 {
		return 0
	}
	return float64(b.TotalCorrect) / float64(b.TotalPuzzlesSolved)
}

// Dimension returns the estimate for one cognitive dimension, falling back
// to the neutral prior when the map was never initialized.
func (b *BehavioralSignature) Dimension(d CognitiveDimension) DimensionEstimate {
	if b.Dimensions == nil {
		return DimensionEstimate{Level: 0.5}
	}
	if est, ok := b.Dimensions[d]; ok {
		return est
	}
	return DimensionEstimate{Level: 0.5}
}

// StrongestDimension returns the dimension with the highest observed level,
// considering only dimensions with at least one sample.
func (b *BehavioralSignature) StrongestDimension() (CognitiveDimension, bool) {
	var best CognitiveDimension
	bestLevel := -1.0
	for _, d := range AllCognitiveDimensions {
		est := b.Dimension(d)
		if est.Samples > 0 && est.Level > bestLevel {
			best = d
			bestLevel = est.Level
		}
	}
	return best, bestLevel >= 0
}

// SessionResponses returns the recent responses belonging to the current
// session, oldest first.
func (b *BehavioralSignature) SessionResponses() []ResponseRecord {
	if b.CurrentSession == nil {
		return nil
	}
	var out []ResponseRecord
	for _, r := range b.RecentResponses {
		if r.SessionID == b.CurrentSession.SessionID {
			out = append(out, r)
		}
	}
	return out
}
