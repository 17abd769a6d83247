package generator

import (
	"math"
	"testing"

	"github.com/puzzlemind/backend/internal/models"
)

func wellFormedPuzzle() GeneratedPuzzle {
	return GeneratedPuzzle{
		Question:     "What number comes next in the series 3, 6, 9, 12?",
		Options:      []string{"14", "15", "16", "18"},
		CorrectIndex: 1,
		Explanation:  "Each term increases by 3, so the term after 12 is 15.",
	}
}

func TestComputeQualityScore_AllPerfect(t *testing.T) {
	vr := &ValidationResult{Confidence: "high", Matches: true}
	ar := &AmbiguityResult{Challenges: nil} // no challenges = clean
	structural := StructuralScore{
		QuestionLengthOK:    true,
		OptionsWellFormed:   true,
		ExplanationRestates: true,
		FormMatchesType:     true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 1.0*0.40 + ambiguity: 1.0*0.35 + structural: 1.0*0.25 = 1.0
	if !almostEqual(score, 1.0) {
		t.Errorf("expected score ~1.0, got %f", score)
	}
}

func TestComputeQualityScore_LowVerification(t *testing.T) {
	vr := &ValidationResult{Confidence: "low", Matches: true}
	ar := &AmbiguityResult{} // clean
	structural := StructuralScore{
		QuestionLengthOK:    true,
		OptionsWellFormed:   true,
		ExplanationRestates: true,
		FormMatchesType:     true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 0.4*0.40 + ambiguity: 1.0*0.35 + structural: 1.0*0.25 = 0.16 + 0.35 + 0.25 = 0.76
	if !almostEqual(score, 0.76) {
		t.Errorf("expected score ~0.76, got %f", score)
	}
}

func TestComputeQualityScore_StrongChallenge(t *testing.T) {
	vr := &ValidationResult{Confidence: "high", Matches: true}
	ar := &AmbiguityResult{
		Challenges: []AmbiguityChallenge{
			{OptionIndex: 2, DefenseStrength: "strong"},
		},
	}
	structural := StructuralScore{
		QuestionLengthOK:    true,
		OptionsWellFormed:   true,
		ExplanationRestates: true,
		FormMatchesType:     true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 1.0*0.40 + ambiguity: 0.0*0.35 + structural: 1.0*0.25 = 0.40 + 0.0 + 0.25 = 0.65
	if !almostEqual(score, 0.65) {
		t.Errorf("expected score ~0.65, got %f", score)
	}
}

func TestComputeQualityScore_PartialStructural(t *testing.T) {
	vr := &ValidationResult{Confidence: "medium", Matches: true}
	ar := &AmbiguityResult{} // clean
	structural := StructuralScore{
		QuestionLengthOK:    true,
		OptionsWellFormed:   false,
		ExplanationRestates: true,
		FormMatchesType:     false,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 0.7*0.40 + ambiguity: 1.0*0.35 + structural: 0.50*0.25 = 0.28 + 0.35 + 0.125 = 0.755
	if !almostEqual(score, 0.755) {
		t.Errorf("expected score ~0.755, got %f", score)
	}
}

func TestComputeQualityScore_NilInputs(t *testing.T) {
	structural := StructuralScore{
		QuestionLengthOK:    true,
		OptionsWellFormed:   true,
		ExplanationRestates: true,
		FormMatchesType:     true,
	}

	score := ComputeQualityScore(nil, nil, structural)
	// verification: 0.4*0.40 + ambiguity: 1.0*0.35 + structural: 1.0*0.25 = 0.16 + 0.35 + 0.25 = 0.76
	if !almostEqual(score, 0.76) {
		t.Errorf("expected score ~0.76, got %f", score)
	}
}

func TestClassifyQuality_Reject(t *testing.T) {
	if got := ClassifyQuality(0.49); got != "reject" {
		t.Errorf("expected 'reject' for 0.49, got %q", got)
	}
	if got := ClassifyQuality(0.0); got != "reject" {
		t.Errorf("expected 'reject' for 0.0, got %q", got)
	}
}

func TestClassifyQuality_Flagged(t *testing.T) {
	if got := ClassifyQuality(0.50); got != "flagged" {
		t.Errorf("expected 'flagged' for 0.50, got %q", got)
	}
	if got := ClassifyQuality(0.70); got != "flagged" {
		t.Errorf("expected 'flagged' for 0.70, got %q", got)
	}
}

func TestClassifyQuality_Passed(t *testing.T) {
	if got := ClassifyQuality(0.71); got != "passed" {
		t.Errorf("expected 'passed' for 0.71, got %q", got)
	}
	if got := ClassifyQuality(1.0); got != "passed" {
		t.Errorf("expected 'passed' for 1.0, got %q", got)
	}
}

func TestComputeStructuralScore(t *testing.T) {
	s := ComputeStructuralScore(models.TypeNumberSeries, wellFormedPuzzle())

	if !s.QuestionLengthOK {
		t.Error("expected QuestionLengthOK = true")
	}
	if !s.OptionsWellFormed {
		t.Error("expected OptionsWellFormed = true")
	}
	if !s.ExplanationRestates {
		t.Error("expected ExplanationRestates = true")
	}
	if !s.FormMatchesType {
		t.Error("expected FormMatchesType = true")
	}
}

func TestComputeStructuralScore_FormMismatch(t *testing.T) {
	// A series question declared as an analogy lacks the analogy form
	s := ComputeStructuralScore(models.TypeAnalogy, wellFormedPuzzle())

	if s.FormMatchesType {
		t.Error("expected FormMatchesType = false for a series question declared as analogy")
	}
	if !s.OptionsWellFormed {
		t.Error("expected OptionsWellFormed = true")
	}
}

func TestComputeStructuralScore_NearDuplicateOptions(t *testing.T) {
	p := wellFormedPuzzle()
	p.Options = []string{
		"green ball bounces quickly today",
		"green ball bounces quickly tomorrow",
		"blue cube",
		"red cone",
	}

	s := ComputeStructuralScore(models.TypeNumberSeries, p)
	if s.OptionsWellFormed {
		t.Error("expected OptionsWellFormed = false for near-duplicate options")
	}
}

func TestComputeStructuralScore_DuplicateOptions(t *testing.T) {
	p := wellFormedPuzzle()
	p.Options = []string{"14", "15", "14", "16"}

	s := ComputeStructuralScore(models.TypeNumberSeries, p)
	if s.OptionsWellFormed {
		t.Error("expected OptionsWellFormed = false for duplicate options")
	}
}

func TestComputeStructuralScore_ExplanationMissingAnswer(t *testing.T) {
	p := wellFormedPuzzle()
	p.Explanation = "The rule is to add three each time."

	s := ComputeStructuralScore(models.TypeNumberSeries, p)
	if s.ExplanationRestates {
		t.Error("expected ExplanationRestates = false when the explanation never names the answer")
	}
}

func TestDetermineAmbiguityScore(t *testing.T) {
	tests := []struct {
		name       string
		challenges []AmbiguityChallenge
		expected   string
	}{
		{"no challenges", nil, "clean"},
		{"all weak", []AmbiguityChallenge{
			{DefenseStrength: "weak"}, {DefenseStrength: "none"},
		}, "clean"},
		{"one moderate", []AmbiguityChallenge{
			{DefenseStrength: "moderate"}, {DefenseStrength: "weak"},
		}, "minor_concern"},
		{"any strong", []AmbiguityChallenge{
			{DefenseStrength: "weak"}, {DefenseStrength: "strong"},
		}, "ambiguous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineAmbiguityScore(tt.challenges)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}
