package engine

import (
	"math"
	"testing"

	"github.com/puzzlemind/backend/internal/models"
)

func TestExpectedSuccess(t *testing.T) {
	// Equal skill and difficulty → ~50%
	got := ExpectedSuccess(0.5, 0.5)
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("ExpectedSuccess(0.5, 0.5) = %f, want ~0.5", got)
	}

	// User well above the puzzle → ~88%
	got = ExpectedSuccess(0.75, 0.5)
	if math.Abs(got-0.88) > 0.05 {
		t.Errorf("ExpectedSuccess(0.75, 0.5) = %f, want ~0.88", got)
	}

	// User well below the puzzle → ~12%
	got = ExpectedSuccess(0.25, 0.5)
	if math.Abs(got-0.12) > 0.05 {
		t.Errorf("ExpectedSuccess(0.25, 0.5) = %f, want ~0.12", got)
	}

	// Extremes
	got = ExpectedSuccess(1.0, 0.0)
	if got < 0.95 {
		t.Errorf("ExpectedSuccess(1.0, 0.0) = %f, want >0.95", got)
	}

	got = ExpectedSuccess(0.0, 1.0)
	if got > 0.05 {
		t.Errorf("ExpectedSuccess(0.0, 1.0) = %f, want <0.05", got)
	}
}

func TestKFactor(t *testing.T) {
	tests := []struct {
		samples int
		want    float64
	}{
		{0, 0.15},
		{5, 0.15},
		{19, 0.15},
		{20, 0.10},
		{50, 0.10},
		{99, 0.10},
		{100, 0.05},
		{500, 0.05},
	}

	for _, tt := range tests {
		got := KFactor(tt.samples)
		if got != tt.want {
			t.Errorf("KFactor(%d) = %f, want %f", tt.samples, got, tt.want)
		}
	}
}

func TestUpdateSkill(t *testing.T) {
	// Correct on matched difficulty → small increase
	got := UpdateSkill(0.5, 0.5, true, 50)
	if got <= 0.5 {
		t.Errorf("UpdateSkill(0.5, 0.5, correct, 50) = %f, want >0.5", got)
	}

	// Wrong on matched difficulty → small decrease
	got = UpdateSkill(0.5, 0.5, false, 50)
	if got >= 0.5 {
		t.Errorf("UpdateSkill(0.5, 0.5, wrong, 50) = %f, want <0.5", got)
	}

	// Correct on a hard puzzle moves more than correct on an easy one
	hard := UpdateSkill(0.5, 0.8, true, 50) - 0.5
	easy := UpdateSkill(0.5, 0.2, true, 50) - 0.5
	if hard <= easy {
		t.Errorf("hard gain (%f) should exceed easy gain (%f)", hard, easy)
	}

	// New users converge faster than mature ones
	gotNew := UpdateSkill(0.5, 0.5, true, 5)
	gotMature := UpdateSkill(0.5, 0.5, true, 200)
	if gotNew <= gotMature {
		t.Errorf("new-user step (%f) should exceed mature step (%f)", gotNew, gotMature)
	}
}

func TestUpdateSkill_StepCap(t *testing.T) {
	// Maximally surprising outcome with the largest K still moves at most
	// MaxSkillStep.
	got := UpdateSkill(0.1, 0.95, true, 0)
	if got-0.1 > models.MaxSkillStep+0.0001 {
		t.Errorf("step %f exceeds cap %f", got-0.1, models.MaxSkillStep)
	}

	got = UpdateSkill(0.9, 0.05, false, 0)
	if 0.9-got > models.MaxSkillStep+0.0001 {
		t.Errorf("step %f exceeds cap %f", 0.9-got, models.MaxSkillStep)
	}
}

func TestUpdateSkill_Bounds(t *testing.T) {
	// Never leaves [0, 1]
	got := UpdateSkill(0.99, 0.5, true, 0)
	if got > 1.0 {
		t.Errorf("UpdateSkill above ceiling: %f", got)
	}

	got = UpdateSkill(0.01, 0.5, false, 0)
	if got < 0.0 {
		t.Errorf("UpdateSkill below floor: %f", got)
	}
}

func TestUpdateDimension(t *testing.T) {
	est := models.DimensionEstimate{Level: 0.5}

	// Primary weight moves more than secondary weight
	primary := UpdateDimension(est, 0.5, true, 1.0)
	secondary := UpdateDimension(est, 0.5, true, 0.5)
	if primary.Level <= secondary.Level {
		t.Errorf("primary level (%f) should exceed secondary level (%f)", primary.Level, secondary.Level)
	}

	// Sample count always advances
	if primary.Samples != 1 {
		t.Errorf("expected Samples = 1, got %d", primary.Samples)
	}

	// Repeated updates stay bounded
	for i := 0; i < 200; i++ {
		est = UpdateDimension(est, 0.9, true, 1.0)
	}
	if est.Level > 1.0 {
		t.Errorf("dimension level above ceiling: %f", est.Level)
	}
	if est.Samples != 200 {
		t.Errorf("expected Samples = 200, got %d", est.Samples)
	}
}

func TestRoll(t *testing.T) {
	// Moves 30% of the way toward the observation
	got := roll(0.5, 1.0)
	if !almostEqual(got, 0.65) {
		t.Errorf("roll(0.5, 1.0) = %f, want 0.65", got)
	}

	got = roll(0.5, 0.0)
	if !almostEqual(got, 0.35) {
		t.Errorf("roll(0.5, 0.0) = %f, want 0.35", got)
	}

	// Observation equal to the average is a no-op
	got = roll(0.42, 0.42)
	if !almostEqual(got, 0.42) {
		t.Errorf("roll(0.42, 0.42) = %f, want 0.42", got)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}
