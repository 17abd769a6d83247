package models

import (
	"fmt"
	"time"
)

type PuzzleType string

const (
	TypePattern         PuzzleType = "pattern"
	TypeNumberSeries    PuzzleType = "number_series"
	TypeAnalogy         PuzzleType = "analogy"
	TypeSpatialRotation PuzzleType = "spatial_rotation"
	TypeMemoryMatch     PuzzleType = "memory_match"
	TypeLogicGrid       PuzzleType = "logic_grid"
	TypeSpeedSort       PuzzleType = "speed_sort"
	TypeOddOneOut       PuzzleType = "odd_one_out"
)

var ValidPuzzleTypes = map[PuzzleType]bool{
	TypePattern:         true,
	TypeNumberSeries:    true,
	TypeAnalogy:         true,
	TypeSpatialRotation: true,
	TypeMemoryMatch:     true,
	TypeLogicGrid:       true,
	TypeSpeedSort:       true,
	TypeOddOneOut:       true,
}

type DifficultyLabel string

const (
	DifficultyEasy   DifficultyLabel = "easy"
	DifficultyMedium DifficultyLabel = "medium"
	DifficultyHard   DifficultyLabel = "hard"
)

var ValidDifficultyLabels = map[DifficultyLabel]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// BucketForScore maps a calibrated difficulty score on [0,1] to the label
// bucket used for inventory accounting.
func BucketForScore(score float64) DifficultyLabel {
	switch {
	case score < 0.45:
		return DifficultyEasy
	case score < 0.75:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

type CognitiveDimension string

const (
	DimPatternRecognition    CognitiveDimension = "pattern_recognition"
	DimLogicalReasoning      CognitiveDimension = "logical_reasoning"
	DimSpatialVisualization  CognitiveDimension = "spatial_visualization"
	DimWorkingMemory         CognitiveDimension = "working_memory"
	DimProcessingSpeed       CognitiveDimension = "processing_speed"
	DimAttentionControl      CognitiveDimension = "attention_control"
	DimMathematicalReasoning CognitiveDimension = "mathematical_reasoning"
	DimVerbalReasoning       CognitiveDimension = "verbal_reasoning"
	DimAbstractReasoning     CognitiveDimension = "abstract_reasoning"
)

var AllCognitiveDimensions = []CognitiveDimension{
	DimPatternRecognition,
	DimLogicalReasoning,
	DimSpatialVisualization,
	DimWorkingMemory,
	DimProcessingSpeed,
	DimAttentionControl,
	DimMathematicalReasoning,
	DimVerbalReasoning,
	DimAbstractReasoning,
}

// PuzzleDimensions maps each puzzle type to the cognitive dimensions it
// exercises. The first entry is the primary dimension and receives full
// weight during skill updates; the rest receive half weight.
var PuzzleDimensions = map[PuzzleType][]CognitiveDimension{
	TypePattern:         {DimPatternRecognition, DimAbstractReasoning},
	TypeNumberSeries:    {DimMathematicalReasoning, DimPatternRecognition},
	TypeAnalogy:         {DimVerbalReasoning, DimAbstractReasoning},
	TypeSpatialRotation: {DimSpatialVisualization, DimWorkingMemory},
	TypeMemoryMatch:     {DimWorkingMemory, DimAttentionControl},
	TypeLogicGrid:       {DimLogicalReasoning, DimWorkingMemory},
	TypeSpeedSort:       {DimProcessingSpeed, DimAttentionControl},
	TypeOddOneOut:       {DimAttentionControl, DimAbstractReasoning},
}

func init() {
	for pt := range ValidPuzzleTypes {
		if len(PuzzleDimensions[pt]) == 0 {
			panic(fmt.Sprintf("models: puzzle type %s has no cognitive dimensions", pt))
		}
	}
}

// ── Core Structs ───────────────────────────────────────

// PuzzleCandidate is what a generator supplies: an opaque puzzle with a
// type, four options, and an optional difficulty label. The engine never
// validates content correctness, only structure.
type PuzzleCandidate struct {
	PuzzleID    string           `json:"puzzle_id,omitempty"`
	Type        PuzzleType       `json:"type"`
	Question    string           `json:"question"`
	Options     []string         `json:"options"`
	CorrectIdx  int              `json:"correct_index"`
	Difficulty  *DifficultyLabel `json:"difficulty,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

// Puzzle is a stored inventory row for a generated candidate.
type Puzzle struct {
	ID              int64            `json:"id"`
	PuzzleID        string           `json:"puzzle_id"`
	Type            PuzzleType       `json:"type"`
	Question        string           `json:"question"`
	Options         []string         `json:"options"`
	CorrectIdx      int              `json:"correct_index"`
	Difficulty      *DifficultyLabel `json:"difficulty,omitempty"`
	DifficultyScore float64          `json:"difficulty_score"`
	Explanation     string           `json:"explanation,omitempty"`
	QualityScore    *float64         `json:"quality_score,omitempty"`
	ModelUsed       string           `json:"model_used,omitempty"`
	TimesServed     int              `json:"times_served"`
	TimesCorrect    int              `json:"times_correct"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (p *Puzzle) Candidate() PuzzleCandidate {
	return PuzzleCandidate{
		PuzzleID:    p.PuzzleID,
		Type:        p.Type,
		Question:    p.Question,
		Options:     p.Options,
		CorrectIdx:  p.CorrectIdx,
		Difficulty:  p.Difficulty,
		Explanation: p.Explanation,
	}
}

// ── Served Types (strip answers for serving) ───────────

type ServedPuzzle struct {
	PuzzleID   string           `json:"puzzle_id"`
	Type       PuzzleType       `json:"type"`
	Question   string           `json:"question"`
	Options    []string         `json:"options"`
	Difficulty *DifficultyLabel `json:"difficulty,omitempty"`
}

func (c PuzzleCandidate) Served() ServedPuzzle {
	return ServedPuzzle{
		PuzzleID:   c.PuzzleID,
		Type:       c.Type,
		Question:   c.Question,
		Options:    c.Options,
		Difficulty: c.Difficulty,
	}
}
