package engine

import (
	"fmt"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

// baseDistributions maps each primary state to its pool allocation before
// modifiers. Every row sums to models.PoolSize.
var baseDistributions = map[models.UserState]models.PoolAllocation{
	models.StateChildLike:          {Confidence: 5, Skill: 3, Challenge: 0, Recovery: 1, Exploratory: 1},
	models.StateNewUser:            {Confidence: 7, Skill: 2, Challenge: 1, Recovery: 0, Exploratory: 0},
	models.StateSeverelyStruggling: {Confidence: 6, Skill: 1, Challenge: 0, Recovery: 3, Exploratory: 0},
	models.StateStruggling:         {Confidence: 4, Skill: 3, Challenge: 1, Recovery: 2, Exploratory: 0},
	models.StateFallingBack:        {Confidence: 4, Skill: 3, Challenge: 1, Recovery: 1, Exploratory: 1},
	models.StateStable:             {Confidence: 2, Skill: 4, Challenge: 2, Recovery: 1, Exploratory: 1},
	models.StateProgressing:        {Confidence: 1, Skill: 4, Challenge: 3, Recovery: 0, Exploratory: 2},
	models.StateExcelling:          {Confidence: 0, Skill: 3, Challenge: 5, Recovery: 0, Exploratory: 2},
	models.StateExpertDemanding:    {Confidence: 0, Skill: 1, Challenge: 7, Recovery: 0, Exploratory: 2},
}

// poolDelta is a signed adjustment applied on top of a base allocation.
type poolDelta struct {
	confidence  int
	skill       int
	challenge   int
	recovery    int
	exploratory int
}

func (d poolDelta) total() int {
	return d.confidence + d.skill + d.challenge + d.recovery + d.exploratory
}

// modifierDeltas shift weight between categories. Every row sums to zero so
// the pool total is preserved before clamping.
var modifierDeltas = map[models.StateModifier]poolDelta{
	models.ModifierConfidenceCrisis: {confidence: 2, challenge: -2},
	models.ModifierDisengaged:       {confidence: 1, challenge: -2, exploratory: 1},
	models.ModifierPowerDependent:   {confidence: 1, skill: 1, challenge: -2},
	models.ModifierFatigued:         {confidence: 1, challenge: -2, recovery: 1},
	models.ModifierSessionDecline:   {confidence: 1, challenge: -1},
}

func init() {
	if len(baseDistributions) != len(models.AllUserStates) {
		panic("pool: base distributions must cover every user state")
	}
	for state, alloc := range baseDistributions {
		if alloc.Total() != models.PoolSize {
			panic(fmt.Sprintf("pool: base distribution for %s sums to %d, want %d",
				state, alloc.Total(), models.PoolSize))
		}
	}
	for mod, d := range modifierDeltas {
		if d.total() != 0 {
			panic(fmt.Sprintf("pool: modifier delta for %s sums to %d, want 0", mod, d.total()))
		}
	}
}

// Planner turns a classification into a pool allocation.
type Planner struct {
	cfg config.EngineConfig
}

func NewPlanner(cfg config.EngineConfig) *Planner {
	return &Planner{cfg: cfg}
}

// Plan returns the category weights for one recommendation request. The
// result always sums to models.PoolSize with no negative weights.
func (p *Planner) Plan(result models.ClassificationResult, sig *models.BehavioralSignature) models.PoolAllocation {
	alloc := baseDistributions[result.PrimaryState]

	// Past onboarding but strength profile not yet established: shift one
	// point from challenge into confidence, and one into skill-matched when
	// a visual strength is already visible.
	if result.PrimaryState != models.StateNewUser && sig.TotalPuzzlesSolved < p.cfg.StrengthSampleMin {
		alloc.Confidence++
		alloc.Challenge--
		if d, ok := sig.StrongestDimension(); ok &&
			(d == models.DimPatternRecognition || d == models.DimSpatialVisualization) {
			if alloc.Challenge >= alloc.Exploratory {
				alloc.Challenge--
			} else {
				alloc.Exploratory--
			}
			alloc.Skill++
		}
	}

	for _, m := range result.Modifiers {
		d, ok := modifierDeltas[m]
		if !ok {
			continue
		}
		alloc.Confidence += d.confidence
		alloc.Skill += d.skill
		alloc.Challenge += d.challenge
		alloc.Recovery += d.recovery
		alloc.Exploratory += d.exploratory
	}

	return renormalize(alloc)
}

// renormalize clamps negative weights to zero and restores the pool total.
// Surplus weight created by clamping is taken out of confidence first, then
// repeatedly from the largest remaining category.
func renormalize(a models.PoolAllocation) models.PoolAllocation {
	for _, c := range models.PoolCategories {
		if a.Get(c) < 0 {
			a.Set(c, 0)
		}
	}

	excess := a.Total() - models.PoolSize
	if excess < 0 {
		a.Confidence -= excess
		return a
	}

	if take := min(excess, a.Confidence); take > 0 {
		a.Confidence -= take
		excess -= take
	}

	for excess > 0 {
		largest := models.PoolCategories[0]
		for _, c := range models.PoolCategories[1:] {
			if a.Get(c) > a.Get(largest) {
				largest = c
			}
		}
		if a.Get(largest) == 0 {
			break
		}
		a.Add(largest, -1)
		excess--
	}

	return a
}
