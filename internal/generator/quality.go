package generator

import (
	"strings"

	"github.com/puzzlemind/backend/internal/models"
)

// typeFormHints lists tokens whose presence suggests the question actually
// poses a puzzle of the declared type. Heuristic, used for scoring only.
var typeFormHints = map[models.PuzzleType][]string{
	models.TypePattern:         {"next", "pattern", "sequence", "continues"},
	models.TypeNumberSeries:    {"next", "series", "number", "term"},
	models.TypeAnalogy:         {"is to", "::"},
	models.TypeSpatialRotation: {"rotat", "reflect", "mirror", "clockwise", "turn", "flip"},
	models.TypeMemoryMatch:     {"list", "appeared", "shown", "twice", "position"},
	models.TypeLogicGrid:       {"who", "whose", "which"},
	models.TypeSpeedSort:       {"order", "sort", "first", "last", "smallest", "largest", "earliest", "arrange"},
	models.TypeOddOneOut:       {"belong", "odd", "different", "except"},
}

// StructuralScore holds the individual structural compliance checks.
type StructuralScore struct {
	QuestionLengthOK    bool
	OptionsWellFormed   bool
	ExplanationRestates bool
	FormMatchesType     bool
}

// ComputeStructuralScore evaluates structural compliance for a single puzzle.
func ComputeStructuralScore(pt models.PuzzleType, p GeneratedPuzzle) StructuralScore {
	qLen := len(p.Question)
	lengthOK := qLen >= 20 && qLen <= 600

	// Four distinct non-empty options that are not near-duplicates of each
	// other. Near-duplicate options read as ambiguous even when technically
	// distinct.
	optionsOK := len(p.Options) == 4 && p.CorrectIndex >= 0 && p.CorrectIndex < 4
	if optionsOK {
		seen := make(map[string]bool)
		for _, opt := range p.Options {
			key := strings.ToLower(strings.TrimSpace(opt))
			if key == "" || seen[key] {
				optionsOK = false
				break
			}
			seen[key] = true
		}
	}
	if optionsOK {
		for i := 0; i < len(p.Options) && optionsOK; i++ {
			for j := i + 1; j < len(p.Options); j++ {
				if jaccardSimilarity(tokenize(p.Options[i]), tokenize(p.Options[j])) > 0.60 {
					optionsOK = false
					break
				}
			}
		}
	}

	restates := false
	if strings.TrimSpace(p.Explanation) != "" && p.CorrectIndex >= 0 && p.CorrectIndex < len(p.Options) {
		answer := strings.ToLower(strings.TrimSpace(p.Options[p.CorrectIndex]))
		restates = answer != "" && strings.Contains(strings.ToLower(p.Explanation), answer)
	}

	formOK := false
	q := strings.ToLower(p.Question)
	for _, hint := range typeFormHints[pt] {
		if strings.Contains(q, hint) {
			formOK = true
			break
		}
	}

	return StructuralScore{
		QuestionLengthOK:    lengthOK,
		OptionsWellFormed:   optionsOK,
		ExplanationRestates: restates,
		FormMatchesType:     formOK,
	}
}

// ComputeQualityScore calculates a composite quality score (0.0-1.0).
//
// Formula: verification_confidence * 0.40 + ambiguity_cleanliness * 0.35 + structural * 0.25
func ComputeQualityScore(vr *ValidationResult, ar *AmbiguityResult, structural StructuralScore) float64 {
	// Verification confidence score
	verificationScore := 0.4 // default low if no validation
	if vr != nil {
		switch vr.Confidence {
		case "high":
			verificationScore = 1.0
		case "medium":
			verificationScore = 0.7
		case "low":
			verificationScore = 0.4
		}
	}

	// Ambiguity cleanliness score
	ambiguityScore := 1.0 // default clean if no ambiguity check
	if ar != nil && len(ar.Challenges) > 0 {
		moderateCount := 0
		for _, c := range ar.Challenges {
			switch c.DefenseStrength {
			case "strong":
				ambiguityScore = 0.0
			case "moderate":
				moderateCount++
			}
		}
		if ambiguityScore > 0 {
			if moderateCount > 1 {
				ambiguityScore = 0.3
			} else if moderateCount == 1 {
				ambiguityScore = 0.6
			}
		}
	}

	// Structural compliance score (4 checks, each worth 0.25)
	structuralScore := 0.0
	if structural.QuestionLengthOK {
		structuralScore += 0.25
	}
	if structural.OptionsWellFormed {
		structuralScore += 0.25
	}
	if structural.ExplanationRestates {
		structuralScore += 0.25
	}
	if structural.FormMatchesType {
		structuralScore += 0.25
	}

	return verificationScore*0.40 + ambiguityScore*0.35 + structuralScore*0.25
}

// ClassifyQuality returns a classification based on the quality score.
// Returns: "reject" (< 0.50), "flagged" (0.50-0.70), "passed" (> 0.70)
func ClassifyQuality(score float64) string {
	if score < 0.50 {
		return "reject"
	}
	if score <= 0.70 {
		return "flagged"
	}
	return "passed"
}
