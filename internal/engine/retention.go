package engine

import "github.com/puzzlemind/backend/internal/models"

// Retention risk weights. The base reflects ambient churn; each deficit
// signal adds its own penalty and the sum is clamped to [0,1].
const (
	retentionBase          = 0.1
	challengeDeficitWeight = 0.25
	varietyDeficitPenalty  = 0.15
	declinePenalty         = 0.2
	lowSatisfactionPenalty = 0.05
	lowSatisfactionCap     = 0.15
	failureStreakPenalty   = 0.1
)

// retentionMinWindow is the minimum number of recent responses before
// window-derived penalties apply.
const retentionMinWindow = 5

// varietyMinTypes is the number of distinct types in the recent window
// below which the variety penalty applies.
const varietyMinTypes = 3

// RetentionRisk estimates how likely the user is to churn, from challenge
// fit, variety, and recent satisfaction signals.
func RetentionRisk(sig *models.BehavioralSignature, result models.ClassificationResult) float64 {
	risk := retentionBase

	window := sig.RecentResponses
	if len(window) >= retentionMinWindow {
		var sumDiff float64
		types := make(map[models.PuzzleType]bool)
		for _, r := range window {
			sumDiff += r.Difficulty
			types[r.Type] = true
		}
		avgDiff := sumDiff / float64(len(window))

		// Served difficulty sitting well under the user's level is a
		// boredom signal.
		if deficit := sig.SkillLevel - 0.1 - avgDiff; deficit > 0 {
			scaled := deficit / 0.3
			if scaled > 1 {
				scaled = 1
			}
			risk += challengeDeficitWeight * scaled
		}

		if len(types) < varietyMinTypes {
			risk += varietyDeficitPenalty
		}
	}

	if result.Trend == models.TrendDeclining {
		risk += declinePenalty
	}
	if n := sig.LowSatisfactionStreak; n > 0 {
		p := lowSatisfactionPenalty * float64(n)
		if p > lowSatisfactionCap {
			p = lowSatisfactionCap
		}
		risk += p
	}
	if result.HasModifier(models.ModifierConfidenceCrisis) {
		risk += failureStreakPenalty
	}

	return clamp01(risk)
}
