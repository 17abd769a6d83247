package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/dna"
	"github.com/puzzlemind/backend/internal/metrics"
	"github.com/puzzlemind/backend/internal/models"
	"github.com/puzzlemind/backend/internal/profile"
)

// Rewarder is the engagement surface the engine touches after a response:
// XP for correct answers plus streak and counter upkeep.
type Rewarder interface {
	AwardPuzzleXP(ctx context.Context, userID string, difficulty, skill float64, solveTimeMs int) int
	UpdateStreak(ctx context.Context, userID string)
	IncrementCounters(ctx context.Context, userID string, correct bool)
}

// ResponseOutcome is what RecordResponse hands back to the caller.
type ResponseOutcome struct {
	SkillLevel float64
	XPAwarded  int
}

// Engine ties the pipeline together: classify the user, plan the pool,
// sample a category, and select one puzzle. Profile mutation is serialized
// per user; requests for different users never contend.
type Engine struct {
	profiles   *profile.Service
	dna        *dna.Analyzer
	classifier *Classifier
	planner    *Planner
	selector   *Selector
	rewarder   Rewarder
	logger     *zap.Logger
	cfg        config.EngineConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

func New(profiles *profile.Service, analyzer *dna.Analyzer, cfg config.Config, logger *zap.Logger) *Engine {
	seed := cfg.Engine.RNGSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		profiles:   profiles,
		dna:        analyzer,
		classifier: NewClassifier(cfg.Classifier),
		planner:    NewPlanner(cfg.Engine),
		selector:   NewSelector(cfg.Engine),
		logger:     logger,
		cfg:        cfg.Engine,
		rng:        rand.New(rand.NewSource(seed)),
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// SetRewarder injects the engagement service for XP/streak/counter updates.
func (e *Engine) SetRewarder(r Rewarder) {
	e.rewarder = r
}

// Initialize ensures a persisted signature exists for the user. It reports
// whether a new signature was created; calling it again is a no-op beyond
// a redundant save.
func (e *Engine) Initialize(ctx context.Context, userID string) bool {
	unlock := e.lockUser(userID)
	defer unlock()

	now := e.now()
	sig := e.profiles.Load(ctx, userID, now)
	created := sig.CreatedAt.Equal(now) && sig.TotalPuzzlesSolved == 0
	e.profiles.Save(ctx, sig)
	return created
}

// GetNextPuzzle runs the full recommendation pipeline over the supplied
// candidates. Malformed candidates are dropped up front; an empty surviving
// pool returns ErrEmptyCandidatePool.
func (e *Engine) GetNextPuzzle(ctx context.Context, userID string, candidates []models.PuzzleCandidate) (*models.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	}()

	pool := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !validCandidate(c) {
			continue
		}
		d := e.dna.Analyze(c)
		c.PuzzleID = d.PuzzleID
		pool = append(pool, scoredCandidate{candidate: c, dna: d})
	}
	if len(pool) == 0 {
		return nil, ErrEmptyCandidatePool
	}

	unlock := e.lockUser(userID)
	defer unlock()

	now := e.now()
	sig := e.profiles.Load(ctx, userID, now)

	result := e.classifier.Classify(sig)
	alloc := e.planner.Plan(result, sig)
	cat := e.sampleCategory(alloc)
	chosen, reason := e.selector.Pick(cat, sig, pool)

	rec := &models.Recommendation{
		RecommendationID:    uuid.New().String(),
		UserID:              userID,
		Puzzle:              chosen.candidate,
		DNA:                 chosen.dna,
		Category:            cat,
		SelectionReason:     reason,
		PredictedSuccess:    predictSuccess(sig, chosen.dna),
		PredictedEngagement: predictEngagement(sig, chosen.dna),
		StrategicValue:      strategicValue(cat, result, sig),
		State:               result.PrimaryState,
		CreatedAt:           now,
	}

	// Record state transitions as they happen so the signature carries its
	// own trajectory.
	if sig.LastState != result.PrimaryState {
		if sig.LastState != "" {
			sig.AppendTransition(models.StateTransition{
				From: sig.LastState,
				To:   result.PrimaryState,
				At:   now,
			})
		}
		sig.LastState = result.PrimaryState
		sig.UpdatedAt = now
		e.profiles.Save(ctx, sig)
	}

	metrics.RecommendationsTotal.WithLabelValues(string(cat), string(result.PrimaryState)).Inc()
	metrics.ClassificationsTotal.WithLabelValues(string(result.PrimaryState)).Inc()

	e.logger.Info("recommendation served",
		zap.String("user_id", userID),
		zap.String("state", string(result.PrimaryState)),
		zap.String("category", string(cat)),
		zap.String("puzzle_id", chosen.dna.PuzzleID),
		zap.Float64("difficulty", chosen.dna.Difficulty))

	return rec, nil
}

// RecordResponse folds one completed puzzle into the user's signature and
// the shared DNA, then applies engagement rewards.
func (e *Engine) RecordResponse(ctx context.Context, userID string, report models.ResponseReport) (*ResponseOutcome, error) {
	if report.PuzzleID == "" {
		return nil, fmt.Errorf("puzzle_id required")
	}

	unlock := e.lockUser(userID)
	defer unlock()

	now := report.At
	if now.IsZero() {
		now = e.now()
	}

	sig := e.profiles.Load(ctx, userID, now)

	// The difficulty the user actually faced: the DNA entry when live,
	// else the caller's inventory hint, else neutral.
	difficulty := 0.5
	ptype := report.Type
	if d, ok := e.dna.Get(report.PuzzleID); ok {
		difficulty = d.Difficulty
		if ptype == "" {
			ptype = d.PuzzleType
		}
	} else if report.Difficulty > 0 {
		difficulty = report.Difficulty
	}

	e.dna.Update(report.PuzzleID, models.PerformanceObservation{
		Correct:     report.Correct,
		Engagement:  report.Engagement,
		SolveTimeMs: report.SolveTimeMs,
	})

	e.rollSessions(sig, now)

	samples := sig.TotalPuzzlesSolved
	sig.SkillLevel = UpdateSkill(sig.SkillLevel, difficulty, report.Correct, samples)
	for i, dim := range models.PuzzleDimensions[ptype] {
		weight := 1.0
		if i > 0 {
			weight = 0.5
		}
		sig.Dimensions[dim] = UpdateDimension(sig.Dimension(dim), difficulty, report.Correct, weight)
	}

	e.rollEngagement(sig, report, difficulty)

	sig.TotalPuzzlesSolved++
	if report.Correct {
		sig.TotalCorrect++
		sig.ConsecutiveFailures = 0
	} else {
		sig.ConsecutiveFailures++
	}

	cs := sig.CurrentSession
	cs.Puzzles++
	if report.Correct {
		cs.Correct++
	}
	n := float64(cs.Puzzles)
	cs.AvgResponseMs += (float64(report.SolveTimeMs) - cs.AvgResponseMs) / n
	cs.AvgEngagement += (report.Engagement - cs.AvgEngagement) / n
	if report.UsedPowerUp {
		cs.PowerUpsUsed++
	}

	sig.AppendResponse(models.ResponseRecord{
		PuzzleID:    report.PuzzleID,
		Type:        ptype,
		Difficulty:  difficulty,
		Correct:     report.Correct,
		SolveTimeMs: report.SolveTimeMs,
		Confidence:  report.Confidence,
		Engagement:  report.Engagement,
		UsedPowerUp: report.UsedPowerUp,
		SessionID:   cs.SessionID,
		At:          now,
	})
	sig.TouchSeen(models.SeenPuzzle{
		PuzzleID:    report.PuzzleID,
		Type:        ptype,
		Difficulty:  difficulty,
		LastCorrect: report.Correct,
		LastSeen:    now,
	})

	sig.UpdatedAt = now
	e.profiles.Save(ctx, sig)

	var xp int
	if e.rewarder != nil {
		if report.Correct {
			xp = e.rewarder.AwardPuzzleXP(ctx, userID, difficulty, sig.SkillLevel, report.SolveTimeMs)
		}
		e.rewarder.UpdateStreak(ctx, userID)
		e.rewarder.IncrementCounters(ctx, userID, report.Correct)
	}

	outcome := "incorrect"
	if report.Correct {
		outcome = "correct"
	}
	metrics.ResponsesTotal.WithLabelValues(outcome).Inc()

	return &ResponseOutcome{SkillLevel: sig.SkillLevel, XPAwarded: xp}, nil
}

// RecordPowerUp logs a power-up use into the user's signature. Called by
// the engagement layer, which knows the kind; response ingestion only sees
// a boolean.
func (e *Engine) RecordPowerUp(ctx context.Context, userID string, kind models.PowerUpKind, puzzleID string) {
	unlock := e.lockUser(userID)
	defer unlock()

	now := e.now()
	sig := e.profiles.Load(ctx, userID, now)
	sig.AppendPowerUp(models.PowerUpEvent{Kind: kind, PuzzleID: puzzleID, At: now})
	sig.UpdatedAt = now
	e.profiles.Save(ctx, sig)
}

// GetMetrics assembles the dashboard view of one user plus system storage.
func (e *Engine) GetMetrics(ctx context.Context, userID string) *models.MetricsResponse {
	unlock := e.lockUser(userID)
	defer unlock()

	sig := e.profiles.Load(ctx, userID, e.now())
	return &models.MetricsResponse{
		UserMetrics: models.UserMetrics{
			TotalSessions:      sig.TotalSessions,
			TotalPuzzlesSolved: sig.TotalPuzzlesSolved,
			OverallAccuracy:    sig.OverallAccuracy(),
			CurrentSkillLevel:  sig.SkillLevel,
		},
		SystemMetrics: models.SystemMetrics{
			StorageSize: e.profiles.StorageSize(ctx),
		},
	}
}

// GetRetentionRisk scores the user's churn risk from the live signature.
func (e *Engine) GetRetentionRisk(ctx context.Context, userID string) *models.RetentionRiskResponse {
	unlock := e.lockUser(userID)
	defer unlock()

	now := e.now()
	sig := e.profiles.Load(ctx, userID, now)
	result := e.classifier.Classify(sig)

	return &models.RetentionRiskResponse{
		Risk:  RetentionRisk(sig, result),
		State: result.PrimaryState,
		AtMs:  now.UnixMilli(),
	}
}

// ── Internals ───────────────────────────────────────────

// lockUser acquires the per-user mutex, creating it on first use.
func (e *Engine) lockUser(userID string) func() {
	e.locksMu.Lock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	e.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// sampleCategory draws one category with probability proportional to its
// allocation weight.
func (e *Engine) sampleCategory(alloc models.PoolAllocation) models.PoolCategory {
	total := alloc.Total()
	if total <= 0 {
		return models.CategorySkill
	}

	e.rngMu.Lock()
	r := e.rng.Intn(total)
	e.rngMu.Unlock()

	for _, c := range models.PoolCategories {
		r -= alloc.Get(c)
		if r < 0 {
			return c
		}
	}
	return models.CategorySkill
}

// rollSessions finalizes an expired session and opens a new one when the
// gap since the last recorded response exceeds models.SessionGap. Session
// boundaries come from event timestamps only.
func (e *Engine) rollSessions(sig *models.BehavioralSignature, now time.Time) {
	var lastAt time.Time
	if n := len(sig.RecentResponses); n > 0 {
		lastAt = sig.RecentResponses[n-1].At
	}

	if sig.CurrentSession != nil && (lastAt.IsZero() || now.Sub(lastAt) > models.SessionGap) {
		e.finalizeSession(sig, lastAt)
	}
	if sig.CurrentSession == nil {
		sig.CurrentSession = &models.SessionRecord{
			SessionID: uuid.New().String(),
			StartedAt: now,
		}
		sig.TotalSessions++
	}
}

// finalizeSession closes the current session at its last activity time and
// folds its aggregates into the long-lived pattern fields.
func (e *Engine) finalizeSession(sig *models.BehavioralSignature, endedAt time.Time) {
	cs := sig.CurrentSession
	if cs == nil {
		return
	}
	if endedAt.IsZero() {
		endedAt = cs.StartedAt
	}
	cs.EndedAt = &endedAt

	// Flow duration learns only from sessions in the productive accuracy
	// band.
	if acc := cs.Accuracy(); cs.Puzzles > 0 && acc >= 0.6 && acc <= 0.85 {
		minutes := endedAt.Sub(cs.StartedAt).Minutes()
		if sig.Engagement.FlowDurationMin == 0 {
			sig.Engagement.FlowDurationMin = minutes
		} else {
			sig.Engagement.FlowDurationMin = roll(sig.Engagement.FlowDurationMin, minutes)
		}
	}

	if cs.Puzzles > 0 {
		if cs.AvgEngagement < 0.5 {
			sig.LowSatisfactionStreak++
		} else {
			sig.LowSatisfactionStreak = 0
		}
	}

	sig.AppendSession(*cs)
	sig.CurrentSession = nil
}

// rollEngagement folds one response into the rolling engagement pattern.
func (e *Engine) rollEngagement(sig *models.BehavioralSignature, report models.ResponseReport, difficulty float64) {
	eng := &sig.Engagement

	ms := float64(report.SolveTimeMs)
	if eng.AvgResponseMs == 0 {
		eng.AvgResponseMs = ms
	} else {
		hesitated := 0.0
		if ms > 1.5*eng.AvgResponseMs {
			hesitated = 1.0
		}
		eng.HesitationTendency = roll(eng.HesitationTendency, hesitated)
		eng.AvgResponseMs = roll(eng.AvgResponseMs, ms)
	}

	powerUp := 0.0
	if report.UsedPowerUp {
		powerUp = 1.0
	}
	eng.PowerUpRate = roll(eng.PowerUpRate, powerUp)

	// A correct, engaged response marks this difficulty as productive.
	if report.Correct && report.Engagement >= 0.7 {
		eng.OptimalChallenge = clamp01(roll(eng.OptimalChallenge, difficulty))
	}
}

// validCandidate reports whether a candidate is structurally servable.
// Content correctness is never checked here.
func validCandidate(c models.PuzzleCandidate) bool {
	if !models.ValidPuzzleTypes[c.Type] {
		return false
	}
	if c.Question == "" || len(c.Options) != 4 {
		return false
	}
	if c.CorrectIdx < 0 || c.CorrectIdx >= len(c.Options) {
		return false
	}
	if c.Difficulty != nil && !models.ValidDifficultyLabels[*c.Difficulty] {
		return false
	}
	return true
}

// predictSuccess blends the skill-versus-difficulty expectation with the
// puzzle's own observed success rate.
func predictSuccess(sig *models.BehavioralSignature, d models.PuzzleDNA) float64 {
	return clamp01(0.7*ExpectedSuccess(sig.SkillLevel, d.Difficulty) + 0.3*d.SuccessRate)
}

// predictEngagement dampens the puzzle's engagement profile by its distance
// from the user's optimal challenge.
func predictEngagement(sig *models.BehavioralSignature, d models.PuzzleDNA) float64 {
	return clamp01(d.UserEngagement - 0.3*math.Abs(d.Difficulty-sig.Engagement.OptimalChallenge))
}

// strategicValue scores how much this pick serves the user's longer arc
// rather than the immediate request.
func strategicValue(cat models.PoolCategory, result models.ClassificationResult, sig *models.BehavioralSignature) float64 {
	v := 0.5
	switch cat {
	case models.CategoryConfidence:
		if result.HasModifier(models.ModifierConfidenceCrisis) || sig.ConsecutiveFailures > 0 {
			v += 0.3
		}
	case models.CategoryChallenge:
		if result.PrimaryState == models.StateExcelling || result.PrimaryState == models.StateExpertDemanding {
			v += 0.3
		} else if result.Trend == models.TrendImproving {
			v += 0.2
		}
	case models.CategoryRecovery:
		v += 0.2
	case models.CategoryExploratory:
		if result.Trend == models.TrendStable {
			v += 0.2
		}
	}
	return clamp01(v)
}
