package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/puzzlemind/backend/internal/models"
)

func TestAllTypesHaveGuidance(t *testing.T) {
	for pt := range models.ValidPuzzleTypes {
		if TypeGuidance(pt) == "" {
			t.Errorf("puzzle type %q has no guidance defined", pt)
		}
	}
}

func TestAllDifficultiesHaveGuidance(t *testing.T) {
	for label := range models.ValidDifficultyLabels {
		if difficultyGuidance[label] == "" {
			t.Errorf("difficulty %q has no guidance defined", label)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt()

	required := []string{"4 options", "ONE correct", "JSON", "QUESTION", "OPTIONS", "EXPLANATION"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(models.TypeNumberSeries, models.DifficultyMedium, 5)

	required := []string{"5", "number_series", "medium", "correct_index", "options", "zero-based"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("user prompt missing keyword %q", keyword)
		}
	}
}

func TestTypeGuidanceInjectedIntoPrompt(t *testing.T) {
	for pt := range models.ValidPuzzleTypes {
		prompt := BuildUserPrompt(pt, models.DifficultyMedium, 3)
		guidance := TypeGuidance(pt)

		// At least the first line of the guidance should appear in the prompt
		firstLine := strings.Split(guidance, "\n")[0]
		if !strings.Contains(prompt, firstLine) {
			t.Errorf("type %q: guidance not found in user prompt", pt)
		}
	}
}

func TestDifficultyGuidanceInjectedIntoPrompt(t *testing.T) {
	for label := range models.ValidDifficultyLabels {
		prompt := BuildUserPrompt(models.TypePattern, label, 3)
		if !strings.Contains(prompt, difficultyGuidance[label]) {
			t.Errorf("difficulty %q: guidance not found in user prompt", label)
		}
	}
}

func TestMockClientProducesParsableBatch(t *testing.T) {
	mock := NewMockClient()

	resp, err := mock.Generate(context.Background(), SystemPrompt(), BuildUserPrompt(models.TypeNumberSeries, models.DifficultyEasy, 3))
	if err != nil {
		t.Fatalf("mock generate failed: %v", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		t.Fatalf("mock output failed validation: %v", err)
	}
	if len(batch.Puzzles) == 0 {
		t.Fatal("mock batch is empty")
	}

	// Mock puzzles carry their answer in the explanation so they survive
	// structural scoring
	for i, p := range batch.Puzzles {
		s := ComputeStructuralScore(models.TypeNumberSeries, p)
		score := ComputeQualityScore(nil, nil, s)
		if ClassifyQuality(score) == "reject" {
			t.Errorf("mock puzzle %d would be rejected (score %f)", i+1, score)
		}
	}
}

func TestMockClientVariesWithPrompt(t *testing.T) {
	mock := NewMockClient()

	a, _ := mock.Generate(context.Background(), "", BuildUserPrompt(models.TypePattern, models.DifficultyEasy, 3))
	b, _ := mock.Generate(context.Background(), "", BuildUserPrompt(models.TypePattern, models.DifficultyHard, 3))

	if a.Content == b.Content {
		t.Error("expected different mock content for different prompts")
	}
}
