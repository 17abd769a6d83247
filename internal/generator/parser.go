package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/puzzlemind/backend/internal/models"
)

type GeneratedBatch struct {
	Puzzles []GeneratedPuzzle `json:"puzzles"`
}

type GeneratedPuzzle struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Candidate converts a generated puzzle into the engine's candidate form,
// stamping the type and difficulty the batch was requested with.
func (p GeneratedPuzzle) Candidate(pt models.PuzzleType, label models.DifficultyLabel) models.PuzzleCandidate {
	l := label
	return models.PuzzleCandidate{
		Type:        pt,
		Question:    p.Question,
		Options:     p.Options,
		CorrectIdx:  p.CorrectIndex,
		Difficulty:  &l,
		Explanation: p.Explanation,
	}
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func validateBatch(batch *GeneratedBatch) error {
	var errs []string

	if len(batch.Puzzles) == 0 {
		return &ValidationError{Errors: []string{"no puzzles in batch"}}
	}

	for i, p := range batch.Puzzles {
		num := i + 1

		if strings.TrimSpace(p.Question) == "" {
			errs = append(errs, fmt.Sprintf("puzzle %d: empty question", num))
		}

		if len(p.Options) != 4 {
			errs = append(errs, fmt.Sprintf("puzzle %d: expected 4 options, got %d", num, len(p.Options)))
			continue
		}

		if p.CorrectIndex < 0 || p.CorrectIndex > 3 {
			errs = append(errs, fmt.Sprintf("puzzle %d: correct_index %d out of range", num, p.CorrectIndex))
		}

		seen := make(map[string]bool)
		for j, opt := range p.Options {
			key := strings.ToLower(strings.TrimSpace(opt))
			if key == "" {
				errs = append(errs, fmt.Sprintf("puzzle %d: option %d is empty", num, j+1))
				continue
			}
			if seen[key] {
				errs = append(errs, fmt.Sprintf("puzzle %d: duplicate option %q", num, opt))
			}
			seen[key] = true
		}

		if strings.TrimSpace(p.Explanation) == "" {
			errs = append(errs, fmt.Sprintf("puzzle %d: empty explanation", num))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// BatchDiversityWarnings reports soft issues worth a log line but not a
// rejection: clustered correct answer positions and near-duplicate surface
// content between puzzles in the same batch.
func BatchDiversityWarnings(batch *GeneratedBatch) []string {
	var warnings []string

	if len(batch.Puzzles) >= 4 {
		counts := make(map[int]int)
		for _, p := range batch.Puzzles {
			counts[p.CorrectIndex]++
		}
		for idx := 0; idx < 4; idx++ {
			if n := counts[idx]; n > (len(batch.Puzzles)+1)/2 {
				warnings = append(warnings, fmt.Sprintf("correct_index %d appears %d times in batch of %d", idx, n, len(batch.Puzzles)))
			}
		}
	}

	tokenSets := make([]map[string]bool, len(batch.Puzzles))
	for i, p := range batch.Puzzles {
		tokenSets[i] = tokenize(p.Question)
	}
	for i := 0; i < len(batch.Puzzles); i++ {
		for j := i + 1; j < len(batch.Puzzles); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				warnings = append(warnings, fmt.Sprintf("puzzles %d and %d share %.0f%% of their keywords", i+1, j+1, overlap*100))
			}
		}
	}

	return warnings
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		// Skip very short words (articles, prepositions)
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
