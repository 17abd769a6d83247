package engine

import (
	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

// trendMinWindow is the smallest recent window that supports a half-versus-
// half trend comparison. Below it the trend reads as stable.
const trendMinWindow = 8

// sessionSplitMin is the minimum number of responses in the current session
// before within-session decline is measured.
const sessionSplitMin = 4

// Classifier derives a user's learning state from the behavioral signature.
// Classification is stateless: every call recomputes from the signature's
// recent window and nothing is persisted.
type Classifier struct {
	cfg config.ClassifierConfig
}

func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// windowSignals holds the aggregates the state rules read, computed once
// per classification.
type windowSignals struct {
	sampleCount   int
	windowSize    int
	successRate   float64
	avgResponseMs float64
	avgDifficulty float64
	avgEngagement float64
	powerUpRatio  float64
	trend         models.LearningTrend

	sessionMinutes   float64
	sessionFirstAcc  float64
	sessionSecondAcc float64
	sessionSplit     bool
}

func (c *Classifier) Classify(sig *models.BehavioralSignature) models.ClassificationResult {
	s := c.signals(sig)

	return models.ClassificationResult{
		PrimaryState:      c.primaryState(sig, s),
		Modifiers:         c.modifiers(sig, s),
		Trend:             s.trend,
		WindowSuccessRate: s.successRate,
		SampleCount:       s.sampleCount,
	}
}

// primaryState evaluates the state rules in a fixed order; the first match
// wins. The high-performance rules run most-specific first so a user
// clearing the expert bar is never absorbed by the broader excelling rule.
func (c *Classifier) primaryState(sig *models.BehavioralSignature, s windowSignals) models.UserState {
	switch {
	case c.isChildLike(sig, s):
		return models.StateChildLike
	case s.sampleCount < c.cfg.NewUserThreshold:
		return models.StateNewUser
	case s.successRate < c.cfg.SevereRate:
		return models.StateSeverelyStruggling
	case s.successRate < c.cfg.StrugglingRate:
		return models.StateStruggling
	case s.successRate < c.cfg.ProgressRate && s.trend == models.TrendDeclining:
		return models.StateFallingBack
	case s.successRate > c.cfg.ExpertRate && s.avgDifficulty >= c.cfg.ExpertDifficulty:
		return models.StateExpertDemanding
	case s.successRate > c.cfg.ExcelRate:
		return models.StateExcelling
	case s.successRate > c.cfg.ProgressRate && s.trend == models.TrendImproving:
		return models.StateProgressing
	default:
		return models.StateStable
	}
}

// isChildLike detects the interaction pattern of a much younger player on a
// shared device: slow responses, low skill, weak mathematical reasoning,
// inside a mid-range sample count.
func (c *Classifier) isChildLike(sig *models.BehavioralSignature, s windowSignals) bool {
	if s.windowSize == 0 {
		return false
	}
	if s.sampleCount < c.cfg.ChildSampleMin || s.sampleCount > c.cfg.ChildSampleMax {
		return false
	}
	return s.avgResponseMs > float64(c.cfg.SlowResponseMs) &&
		sig.SkillLevel < c.cfg.ChildSkillCeiling &&
		sig.Dimension(models.DimMathematicalReasoning).Level < c.cfg.ChildMathCeiling
}

// modifiers returns every modifier whose condition holds; any subset may
// co-occur with the primary state. A user with no history gets none.
func (c *Classifier) modifiers(sig *models.BehavioralSignature, s windowSignals) []models.StateModifier {
	var mods []models.StateModifier

	if sig.ConsecutiveFailures >= c.cfg.CrisisFailures {
		mods = append(mods, models.ModifierConfidenceCrisis)
	}
	if s.windowSize > 0 && s.avgEngagement < c.cfg.DisengagedBelow {
		mods = append(mods, models.ModifierDisengaged)
	}
	if s.windowSize > 0 && s.powerUpRatio > c.cfg.PowerDependentAbove {
		mods = append(mods, models.ModifierPowerDependent)
	}
	if s.sessionSplit && s.sessionMinutes >= float64(c.cfg.LongSessionMinutes) &&
		s.sessionSecondAcc < s.sessionFirstAcc {
		mods = append(mods, models.ModifierFatigued)
	}
	if s.sessionSplit && s.sessionSecondAcc <= s.sessionFirstAcc-c.cfg.SessionDeclineDrop {
		mods = append(mods, models.ModifierSessionDecline)
	}

	return mods
}

func (c *Classifier) signals(sig *models.BehavioralSignature) windowSignals {
	window := sig.RecentResponses
	s := windowSignals{
		sampleCount: sig.TotalPuzzlesSolved,
		windowSize:  len(window),
		trend:       models.TrendStable,
	}
	if len(window) == 0 {
		return s
	}

	var correct, powerUps int
	var sumMs, sumDiff, sumEng float64
	for _, r := range window {
		if r.Correct {
			correct++
		}
		if r.UsedPowerUp {
			powerUps++
		}
		sumMs += float64(r.SolveTimeMs)
		sumDiff += r.Difficulty
		sumEng += r.Engagement
	}

	n := float64(len(window))
	s.successRate = float64(correct) / n
	s.avgResponseMs = sumMs / n
	s.avgDifficulty = sumDiff / n
	s.avgEngagement = sumEng / n
	s.powerUpRatio = float64(powerUps) / n
	s.trend = c.trend(window)

	c.sessionSignals(sig, &s)
	return s
}

// trend compares the success rate of the newer half of the window against
// the older half, with a dead band so ordinary noise reads as stable.
func (c *Classifier) trend(window []models.ResponseRecord) models.LearningTrend {
	if len(window) < trendMinWindow {
		return models.TrendStable
	}

	mid := len(window) / 2
	diff := successRate(window[mid:]) - successRate(window[:mid])

	switch {
	case diff > c.cfg.TrendDeadBand:
		return models.TrendImproving
	case diff < -c.cfg.TrendDeadBand:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// sessionSignals derives session length and the first-half/second-half
// accuracy split from the current session's responses. Session duration
// comes from response timestamps, never from a running clock.
func (c *Classifier) sessionSignals(sig *models.BehavioralSignature, s *windowSignals) {
	if sig.CurrentSession == nil {
		return
	}
	rs := sig.SessionResponses()
	if len(rs) == 0 {
		return
	}

	last := rs[len(rs)-1].At
	s.sessionMinutes = last.Sub(sig.CurrentSession.StartedAt).Minutes()

	if len(rs) < sessionSplitMin {
		return
	}
	mid := len(rs) / 2
	s.sessionFirstAcc = successRate(rs[:mid])
	s.sessionSecondAcc = successRate(rs[mid:])
	s.sessionSplit = true
}

func successRate(rs []models.ResponseRecord) float64 {
	if len(rs) == 0 {
		return 0
	}
	var correct int
	for _, r := range rs {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(rs))
}
