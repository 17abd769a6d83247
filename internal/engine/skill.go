package engine

import (
	"math"

	"github.com/puzzlemind/backend/internal/models"
)

// ExpectedSuccess returns the probability a user at the given skill level
// solves a puzzle of the given difficulty.
// Uses a sigmoid centered on 0 with scaling factor 0.125.
func ExpectedSuccess(skill, difficulty float64) float64 {
	x := (skill - difficulty) / 0.125
	return 1.0 / (1.0 + math.Exp(-x))
}

// KFactor returns the adjustment strength based on how many puzzles the
// user has answered at this scope.
func KFactor(samples int) float64 {
	if samples < 20 {
		return 0.15 // New user: fast convergence
	}
	if samples < 100 {
		return 0.10 // Intermediate: moderate adjustment
	}
	return 0.05 // Mature: stable, small adjustments
}

// UpdateSkill calculates the updated skill level after one response. The
// adjustment is proportional to how surprising the outcome was and is never
// larger than models.MaxSkillStep in either direction.
func UpdateSkill(current, difficulty float64, correct bool, samples int) float64 {
	expected := ExpectedSuccess(current, difficulty)
	k := KFactor(samples)

	var result float64
	if correct {
		result = 1.0
	}

	adjustment := (result - expected) * k
	if adjustment > models.MaxSkillStep {
		adjustment = models.MaxSkillStep
	}
	if adjustment < -models.MaxSkillStep {
		adjustment = -models.MaxSkillStep
	}

	return clamp01(current + adjustment)
}

// UpdateDimension applies one response to a per-dimension estimate. Weight
// scales the adjustment: the primary dimension of a puzzle type carries 1.0,
// secondary dimensions 0.5.
func UpdateDimension(est models.DimensionEstimate, difficulty float64, correct bool, weight float64) models.DimensionEstimate {
	expected := ExpectedSuccess(est.Level, difficulty)
	k := KFactor(est.Samples) * weight

	var result float64
	if correct {
		result = 1.0
	}

	adjustment := (result - expected) * k
	if adjustment > models.MaxSkillStep {
		adjustment = models.MaxSkillStep
	}
	if adjustment < -models.MaxSkillStep {
		adjustment = -models.MaxSkillStep
	}

	est.Level = clamp01(est.Level + adjustment)
	est.Samples++
	return est
}

// rollingAlpha weighs one new observation against a running average.
const rollingAlpha = 0.3

// roll moves a running average toward one new observation.
func roll(avg, observed float64) float64 {
	return avg + rollingAlpha*(observed-avg)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
