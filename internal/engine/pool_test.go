package engine

import (
	"testing"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

func testPlanner() *Planner {
	return NewPlanner(config.DefaultConfig().Engine)
}

// establishedSig is a signature past the strength-profiling phase so the
// early-user shift does not apply.
func establishedSig() *models.BehavioralSignature {
	sig := models.NewBehavioralSignature("u-test", t0)
	sig.TotalPuzzlesSolved = 100
	return sig
}

func TestPlan_BaseDistributions(t *testing.T) {
	p := testPlanner()
	sig := establishedSig()

	for _, state := range models.AllUserStates {
		got := p.Plan(models.ClassificationResult{PrimaryState: state}, sig)
		if got != baseDistributions[state] {
			t.Errorf("%s: expected base distribution %+v, got %+v", state, baseDistributions[state], got)
		}
	}
}

func TestPlan_TotalPreserved(t *testing.T) {
	p := testPlanner()
	sig := establishedSig()

	allMods := []models.StateModifier{
		models.ModifierConfidenceCrisis,
		models.ModifierDisengaged,
		models.ModifierPowerDependent,
		models.ModifierFatigued,
		models.ModifierSessionDecline,
	}

	// Every state with every modifier subset still sums to PoolSize with no
	// negative weights.
	for _, state := range models.AllUserStates {
		for mask := 0; mask < 1<<len(allMods); mask++ {
			var mods []models.StateModifier
			for i, m := range allMods {
				if mask&(1<<i) != 0 {
					mods = append(mods, m)
				}
			}

			got := p.Plan(models.ClassificationResult{PrimaryState: state, Modifiers: mods}, sig)
			if got.Total() != models.PoolSize {
				t.Errorf("%s mods=%v: total %d, want %d", state, mods, got.Total(), models.PoolSize)
			}
			for _, c := range models.PoolCategories {
				if got.Get(c) < 0 {
					t.Errorf("%s mods=%v: negative weight for %s: %+v", state, mods, c, got)
				}
			}
		}
	}
}

func TestPlan_ConfidenceCrisisShift(t *testing.T) {
	p := testPlanner()
	sig := establishedSig()

	base := p.Plan(models.ClassificationResult{PrimaryState: models.StateStable}, sig)
	got := p.Plan(models.ClassificationResult{
		PrimaryState: models.StateStable,
		Modifiers:    []models.StateModifier{models.ModifierConfidenceCrisis},
	}, sig)

	if got.Confidence <= base.Confidence {
		t.Errorf("crisis confidence %d should exceed base %d", got.Confidence, base.Confidence)
	}
	if got.Challenge >= base.Challenge {
		t.Errorf("crisis challenge %d should be under base %d", got.Challenge, base.Challenge)
	}
	if got.Total() != models.PoolSize {
		t.Errorf("crisis total %d, want %d", got.Total(), models.PoolSize)
	}

	want := models.PoolAllocation{Confidence: 4, Skill: 4, Challenge: 0, Recovery: 1, Exploratory: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestPlan_NewUserKeepsOnboardingMix(t *testing.T) {
	p := testPlanner()

	// 3 lifetime puzzles: the early-user shift targets users past onboarding,
	// never the new_user state itself
	sig := models.NewBehavioralSignature("u-test", t0)
	sig.TotalPuzzlesSolved = 3

	got := p.Plan(models.ClassificationResult{PrimaryState: models.StateNewUser}, sig)
	want := models.PoolAllocation{Confidence: 7, Skill: 2, Challenge: 1, Recovery: 0, Exploratory: 0}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestPlan_EarlyUserShift(t *testing.T) {
	p := testPlanner()

	sig := models.NewBehavioralSignature("u-test", t0)
	sig.TotalPuzzlesSolved = 20

	got := p.Plan(models.ClassificationResult{PrimaryState: models.StateStable}, sig)
	want := models.PoolAllocation{Confidence: 3, Skill: 4, Challenge: 1, Recovery: 1, Exploratory: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	// A visible visual strength pulls one more point into skill-matched
	sig.Dimensions[models.DimPatternRecognition] = models.DimensionEstimate{Level: 0.7, Samples: 5}
	got = p.Plan(models.ClassificationResult{PrimaryState: models.StateStable}, sig)
	want = models.PoolAllocation{Confidence: 3, Skill: 5, Challenge: 0, Recovery: 1, Exploratory: 1}
	if got != want {
		t.Errorf("expected %+v with pattern strength, got %+v", want, got)
	}

	// A verbal strength does not
	sig.Dimensions[models.DimPatternRecognition] = models.DimensionEstimate{Level: 0.5, Samples: 5}
	sig.Dimensions[models.DimVerbalReasoning] = models.DimensionEstimate{Level: 0.8, Samples: 5}
	got = p.Plan(models.ClassificationResult{PrimaryState: models.StateStable}, sig)
	want = models.PoolAllocation{Confidence: 3, Skill: 4, Challenge: 1, Recovery: 1, Exploratory: 1}
	if got != want {
		t.Errorf("expected %+v with verbal strength, got %+v", want, got)
	}
}

func TestPlan_StackedModifiers(t *testing.T) {
	p := testPlanner()
	sig := establishedSig()

	// All five modifiers drive challenge deep below zero; the clamp surplus
	// comes back out of confidence
	got := p.Plan(models.ClassificationResult{
		PrimaryState: models.StateSeverelyStruggling,
		Modifiers: []models.StateModifier{
			models.ModifierConfidenceCrisis,
			models.ModifierDisengaged,
			models.ModifierPowerDependent,
			models.ModifierFatigued,
			models.ModifierSessionDecline,
		},
	}, sig)

	want := models.PoolAllocation{Confidence: 3, Skill: 2, Challenge: 0, Recovery: 4, Exploratory: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRenormalize_LargestCategoryFallback(t *testing.T) {
	// Confidence alone cannot absorb the surplus; the rest comes off the
	// largest categories one point at a time
	got := renormalize(models.PoolAllocation{Confidence: 1, Skill: 6, Challenge: 6})
	want := models.PoolAllocation{Confidence: 0, Skill: 5, Challenge: 5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRenormalize_Deficit(t *testing.T) {
	// Clamping never creates a deficit today, but a short allocation must
	// still come back at full size
	got := renormalize(models.PoolAllocation{Skill: 4})
	if got.Total() != models.PoolSize {
		t.Errorf("total %d, want %d", got.Total(), models.PoolSize)
	}
	if got.Confidence != 6 {
		t.Errorf("expected confidence to absorb the deficit, got %+v", got)
	}
}
