// Package dna assigns each puzzle a normalized difficulty/engagement
// profile, memoized by puzzle identity and refined from observed outcomes.
// One analyzer is shared by every user session; profiles reference DNA
// entries but never own them.
package dna

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// Blend weights for folding a new observation into the cached aggregates.
const (
	NewWeight   = 0.7
	PriorWeight = 0.3
)

// Neutral priors used until real performance data arrives.
const (
	EngagementPrior = 0.7
	SuccessPrior    = 0.6
)

// Difficulty seeds for generator-declared labels.
var labelDifficulty = map[models.DifficultyLabel]float64{
	models.DifficultyEasy:   0.3,
	models.DifficultyMedium: 0.6,
	models.DifficultyHard:   0.9,
}

// baseComplexity seeds difficulty per puzzle type when the generator
// declares no label. Unknown types fall back to 0.5.
var baseComplexity = map[models.PuzzleType]float64{
	models.TypePattern:         0.40,
	models.TypeNumberSeries:    0.50,
	models.TypeAnalogy:         0.45,
	models.TypeSpatialRotation: 0.60,
	models.TypeMemoryMatch:     0.35,
	models.TypeLogicGrid:       0.65,
	models.TypeSpeedSort:       0.40,
	models.TypeOddOneOut:       0.45,
}

func init() {
	for pt := range models.ValidPuzzleTypes {
		if _, ok := baseComplexity[pt]; !ok {
			panic(fmt.Sprintf("dna: no base complexity for puzzle type %s", pt))
		}
	}
}

// Analyzer holds the shared DNA cache. Reads dominate writes; the blend on
// update is atomic per puzzle id under the write lock, so concurrent
// sessions can never corrupt the [0,1] bounds.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[string]*models.PuzzleDNA
	now   func() time.Time
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		cache: make(map[string]*models.PuzzleDNA),
		now:   time.Now,
	}
}

// Identity returns the stable identity for a candidate: the semantic id
// when the generator supplies one, else a hash of the normalized
// (question, options, type) tuple so structurally identical puzzles
// collapse to one DNA entry.
func (a *Analyzer) Identity(c models.PuzzleCandidate) string {
	if c.PuzzleID != "" {
		return c.PuzzleID
	}
	h := sha256.New()
	h.Write([]byte(normalize(string(c.Type))))
	h.Write([]byte{0})
	h.Write([]byte(normalize(c.Question)))
	for _, opt := range c.Options {
		h.Write([]byte{0})
		h.Write([]byte(normalize(opt)))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Analyze returns the DNA for a candidate, computing and caching a seed
// profile on first sight. Re-analyzing a known identity returns the cached
// DNA unchanged. Malformed candidates never fail; missing labels and
// unknown types fall back to neutral defaults.
func (a *Analyzer) Analyze(c models.PuzzleCandidate) models.PuzzleDNA {
	id := a.Identity(c)

	a.mu.RLock()
	cached, ok := a.cache[id]
	if ok {
		dna := *cached
		a.mu.RUnlock()
		return dna
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	// Re-check: another session may have seeded this id while we waited.
	if cached, ok := a.cache[id]; ok {
		return *cached
	}
	dna := &models.PuzzleDNA{
		PuzzleID:       id,
		PuzzleType:     c.Type,
		Difficulty:     seedDifficulty(c),
		UserEngagement: EngagementPrior,
		SuccessRate:    SuccessPrior,
		GeneratedAt:    a.now().UTC(),
	}
	a.cache[id] = dna
	return *dna
}

func seedDifficulty(c models.PuzzleCandidate) float64 {
	if c.Difficulty != nil {
		if d, ok := labelDifficulty[*c.Difficulty]; ok {
			return d
		}
	}
	if d, ok := baseComplexity[c.Type]; ok {
		return d
	}
	return 0.5
}

// Update blends an observed outcome into the cached DNA for a puzzle id.
// Unknown ids are a silent no-op: DNA is created lazily only through
// Analyze, so an update racing an eviction loses nothing that matters.
func (a *Analyzer) Update(puzzleID string, obs models.PerformanceObservation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dna, ok := a.cache[puzzleID]
	if !ok {
		return
	}

	observed := 0.0
	if obs.Correct {
		observed = 1.0
	}
	dna.SuccessRate = clamp01(NewWeight*observed + PriorWeight*dna.SuccessRate)
	dna.UserEngagement = clamp01(NewWeight*clamp01(obs.Engagement) + PriorWeight*dna.UserEngagement)
	dna.Observations++
}

// Get returns the cached DNA for an id without creating one.
func (a *Analyzer) Get(puzzleID string) (models.PuzzleDNA, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	dna, ok := a.cache[puzzleID]
	if !ok {
		return models.PuzzleDNA{}, false
	}
	return *dna, true
}

// Size reports the number of cached DNA entries.
func (a *Analyzer) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
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
