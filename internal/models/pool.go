package models

// PoolSize is the fixed total weight a pool allocation distributes across
// the five selection categories.
const PoolSize = 10

type PoolCategory string

const (
	CategoryConfidence  PoolCategory = "confidence"
	CategorySkill       PoolCategory = "skill-matched"
	CategoryChallenge   PoolCategory = "challenge"
	CategoryRecovery    PoolCategory = "recovery"
	CategoryExploratory PoolCategory = "exploratory"
)

// PoolCategories fixes the sampling order for deterministic tests.
var PoolCategories = []PoolCategory{
	CategoryConfidence,
	CategorySkill,
	CategoryChallenge,
	CategoryRecovery,
	CategoryExploratory,
}

// PoolAllocation distributes the pool weight across the five categories.
// Weights are non-negative and always sum to PoolSize.
type PoolAllocation struct {
	Confidence  int `json:"confidence"`
	Skill       int `json:"skill"`
	Challenge   int `json:"challenge"`
	Recovery    int `json:"recovery"`
	Exploratory int `json:"exploratory"`
}

func (a PoolAllocation) Total() int {
	return a.Confidence + a.Skill + a.Challenge + a.Recovery + a.Exploratory
}

func (a PoolAllocation) Get(c PoolCategory) int {
	switch c {
	case CategoryConfidence:
		return a.Confidence
	case CategorySkill:
		return a.Skill
	case CategoryChallenge:
		return a.Challenge
	case CategoryRecovery:
		return a.Recovery
	case CategoryExploratory:
		return a.Exploratory
	}
	return 0
}

func (a *PoolAllocation) Set(c PoolCategory, w int) {
	switch c {
	case CategoryConfidence:
		a.Confidence = w
	case CategorySkill:
		a.Skill = w
	case CategoryChallenge:
		a.Challenge = w
	case CategoryRecovery:
		a.Recovery = w
	case CategoryExploratory:
		a.Exploratory = w
	}
}

func (a *PoolAllocation) Add(c PoolCategory, delta int) {
	a.Set(c, a.Get(c)+delta)
}
