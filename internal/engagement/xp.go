package engagement

import "math"

// BaseXP returns XP for a correct answer by difficulty band on the [0,1]
// scale.
func BaseXP(difficulty float64) int {
	if difficulty <= 0.2 {
		return 5
	}
	if difficulty <= 0.4 {
		return 8
	}
	if difficulty <= 0.6 {
		return 10
	}
	if difficulty <= 0.8 {
		return 13
	}
	return 16
}

// ChallengeBonus adds XP when the solved puzzle sat above the user's skill
// level.
func ChallengeBonus(skill, difficulty float64) int {
	gap := difficulty - skill
	if gap <= 0 {
		return 0
	}
	if gap <= 0.1 {
		return 2
	}
	if gap <= 0.2 {
		return 5
	}
	return 8
}

// SpeedBonus rewards fast correct answers. Zero when no solve time was
// reported.
func SpeedBonus(solveTimeMs int) int {
	if solveTimeMs <= 0 {
		return 0
	}
	if solveTimeMs <= 15000 {
		return 5
	}
	if solveTimeMs <= 30000 {
		return 3
	}
	if solveTimeMs <= 60000 {
		return 1
	}
	return 0
}

// StreakMultiplier returns the XP multiplier for a daily streak.
func StreakMultiplier(currentStreak int) float64 {
	if currentStreak < 3 {
		return 1.0
	}
	if currentStreak < 7 {
		return 1.15
	}
	if currentStreak < 14 {
		return 1.25
	}
	if currentStreak < 30 {
		return 1.5
	}
	return 2.0
}

// ApplyStreakMultiplier rounds the multiplied XP to the nearest integer.
func ApplyStreakMultiplier(xp int, multiplier float64) int {
	return int(math.Round(float64(xp) * multiplier))
}

var streakMilestones = map[int]int{
	3: 10, 7: 25, 14: 50, 30: 100, 60: 200, 100: 500, 365: 1000,
}

// MilestoneXP returns the one-time award for reaching a streak milestone,
// or zero for ordinary days.
func MilestoneXP(streak int) int {
	return streakMilestones[streak]
}

// LevelForXP converts lifetime XP into a level. Levels start at 1 and each
// step costs 75 XP more than the previous one, so level 2 lands at 75 XP,
// level 3 at 225, level 4 at 450.
func LevelForXP(totalXP int64) int {
	level := 1
	need := int64(75)
	for totalXP >= need {
		totalXP -= need
		level++
		need += 75
	}
	return level
}
