package engine

import (
	"fmt"
	"math"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

// recentTypeWindow is how many of the latest responses define "recently
// played" types for the variety bias.
const recentTypeWindow = 3

// scoredCandidate pairs a structurally valid candidate with its DNA.
type scoredCandidate struct {
	candidate models.PuzzleCandidate
	dna       models.PuzzleDNA
}

// Selector picks one puzzle from a candidate pool for a sampled category.
type Selector struct {
	cfg config.EngineConfig
}

func NewSelector(cfg config.EngineConfig) *Selector {
	return &Selector{cfg: cfg}
}

// difficultyBand is the target difficulty range for one category.
type difficultyBand struct {
	lo, hi float64
}

// Pick selects the best candidate for the category. When no candidate falls
// inside the target band it progressively widens the band, then drops the
// category's type constraint, and finally considers the whole pool rather
// than failing. The pool must be non-empty.
func (s *Selector) Pick(cat models.PoolCategory, sig *models.BehavioralSignature, pool []scoredCandidate) (scoredCandidate, string) {
	b := s.band(cat, sig)
	allowed := s.typeFilter(cat, sig)
	recent := recentTypes(sig)

	for relax := 0; ; relax++ {
		lo := b.lo - float64(relax)*s.cfg.BandRelaxStep
		hi := b.hi + float64(relax)*s.cfg.BandRelaxStep

		var matches []scoredCandidate
		for _, c := range pool {
			if c.dna.Difficulty < lo || c.dna.Difficulty > hi {
				continue
			}
			if allowed != nil && !allowed[c.candidate.Type] {
				continue
			}
			matches = append(matches, c)
		}

		if len(matches) > 0 {
			best := s.best(cat, sig, matches, recent)
			return best, fmt.Sprintf("%s:%s", cat, best.candidate.Type)
		}

		if lo <= 0 && hi >= 1 {
			if allowed == nil {
				// Fully relaxed: any candidate serves.
				best := s.best(cat, sig, pool, recent)
				return best, fmt.Sprintf("%s:%s", cat, best.candidate.Type)
			}
			allowed = nil
		}
	}
}

// band computes the starting difficulty range for a category against the
// user's signature.
func (s *Selector) band(cat models.PoolCategory, sig *models.BehavioralSignature) difficultyBand {
	switch cat {
	case models.CategoryConfidence, models.CategoryRecovery:
		return difficultyBand{0, s.cfg.EasyCeiling}
	case models.CategorySkill:
		return difficultyBand{sig.SkillLevel - s.cfg.SkillBandWidth, sig.SkillLevel + s.cfg.SkillBandWidth}
	case models.CategoryChallenge:
		lo := math.Max(s.cfg.ChallengeFloor, sig.SkillLevel+s.cfg.ChallengeMargin)
		if lo > 0.95 {
			lo = 0.95
		}
		return difficultyBand{lo, 1}
	default: // exploratory: near the user's optimal challenge
		oc := sig.Engagement.OptimalChallenge
		return difficultyBand{oc - 2*s.cfg.SkillBandWidth, oc + 2*s.cfg.SkillBandWidth}
	}
}

// typeFilter returns the hard type constraint for a category, or nil when
// the category does not constrain type. Recovery targets types the user
// most recently missed; exploratory targets types absent from the recent
// window. An unsatisfiable constraint degrades to nil.
func (s *Selector) typeFilter(cat models.PoolCategory, sig *models.BehavioralSignature) map[models.PuzzleType]bool {
	switch cat {
	case models.CategoryRecovery:
		missed := make(map[models.PuzzleType]bool)
		for _, sp := range sig.SeenPuzzles {
			if !sp.LastCorrect {
				missed[sp.Type] = true
			}
		}
		if len(missed) == 0 {
			return nil
		}
		return missed
	case models.CategoryExploratory:
		tried := make(map[models.PuzzleType]bool)
		for _, r := range sig.RecentResponses {
			tried[r.Type] = true
		}
		untried := make(map[models.PuzzleType]bool)
		for t := range models.ValidPuzzleTypes {
			if !tried[t] {
				untried[t] = true
			}
		}
		if len(untried) == 0 {
			return nil
		}
		return untried
	default:
		return nil
	}
}

// best orders matches by variety first (type not among the latest
// responses), then by the category's own score.
func (s *Selector) best(cat models.PoolCategory, sig *models.BehavioralSignature, matches []scoredCandidate, recent map[models.PuzzleType]bool) scoredCandidate {
	best := matches[0]
	bestFresh := !recent[best.candidate.Type]
	bestScore := s.score(cat, sig, best)

	for _, m := range matches[1:] {
		fresh := !recent[m.candidate.Type]
		if fresh != bestFresh {
			if fresh {
				best, bestFresh, bestScore = m, fresh, s.score(cat, sig, m)
			}
			continue
		}
		if score := s.score(cat, sig, m); score > bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

// score rates how well one candidate serves the category. Higher is better;
// exact ties keep pool order.
func (s *Selector) score(cat models.PoolCategory, sig *models.BehavioralSignature, m scoredCandidate) float64 {
	switch cat {
	case models.CategoryConfidence:
		score := 1 - m.dna.Difficulty
		if lastOutcome(sig, m.candidate.Type, true) {
			score += 0.2
		}
		return score
	case models.CategorySkill:
		return 1 - math.Abs(m.dna.Difficulty-sig.SkillLevel)
	case models.CategoryChallenge:
		return m.dna.Difficulty
	case models.CategoryRecovery:
		score := 1 - m.dna.Difficulty
		if lastOutcome(sig, m.candidate.Type, false) {
			score += 0.2
		}
		return score
	default: // exploratory
		score := 1 - math.Abs(m.dna.Difficulty-sig.Engagement.OptimalChallenge)
		if !typeSeen(sig, m.candidate.Type) {
			score += 0.5
		}
		return score
	}
}

// recentTypes returns the types of the latest recentTypeWindow responses.
func recentTypes(sig *models.BehavioralSignature) map[models.PuzzleType]bool {
	out := make(map[models.PuzzleType]bool, recentTypeWindow)
	rs := sig.RecentResponses
	for i := len(rs) - 1; i >= 0 && i >= len(rs)-recentTypeWindow; i-- {
		out[rs[i].Type] = true
	}
	return out
}

// lastOutcome reports whether any tracked puzzle of the type most recently
// ended with the given outcome.
func lastOutcome(sig *models.BehavioralSignature, t models.PuzzleType, correct bool) bool {
	for _, sp := range sig.SeenPuzzles {
		if sp.Type == t && sp.LastCorrect == correct {
			return true
		}
	}
	return false
}

func typeSeen(sig *models.BehavioralSignature, t models.PuzzleType) bool {
	for _, sp := range sig.SeenPuzzles {
		if sp.Type == t {
			return true
		}
	}
	return false
}
