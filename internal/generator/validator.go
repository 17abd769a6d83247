package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/config"
)

// Validator handles the self-verification and ambiguity review stages that
// run after generation. It re-solves each puzzle blind and then argues for
// every wrong option to catch answers that are not uniquely defensible.
type Validator struct {
	llm    LLMClient
	model  string
	logger *zap.Logger
}

func NewValidator(cfg config.GeneratorConfig, logger *zap.Logger) *Validator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("USE_CLI_GENERATOR") == "true" {
		cliPath := os.Getenv("CLAUDE_CLI_PATH")
		if cliPath == "" {
			cliPath = "claude"
		}
		llm = NewCLIClient(cliPath)
		model = "claude-cli"
	} else if cfg.Mock {
		llm = nil // Validation is skipped in mock mode
	} else {
		model = cfg.ValidationModel
		llm = NewAPIClient(model, cfg.MaxTokens, logger)
	}

	return &Validator{llm: llm, model: model, logger: logger}
}

func (v *Validator) ModelName() string {
	return v.model
}

// ── Self-Verification ──────────────────────────────────────

type ValidationResult struct {
	PuzzleIndex     int    `json:"puzzle_index"`
	SelectedIndex   int    `json:"selected_index"`
	GeneratedIndex  int    `json:"generated_index"`
	Matches         bool   `json:"matches"`
	Confidence      string `json:"confidence"`
	Reasoning       string `json:"reasoning"`
	PotentialIssues string `json:"potential_issues"`
	PromptTokens    int    `json:"prompt_tokens"`
	OutputTokens    int    `json:"output_tokens"`
}

type BatchValidationResult struct {
	TotalPuzzles      int                `json:"total_puzzles"`
	PassedCount       int                `json:"passed_count"`
	FlaggedCount      int                `json:"flagged_count"`
	RejectedCount     int                `json:"rejected_count"`
	Results           []ValidationResult `json:"results"`
	TotalPromptTokens int                `json:"total_prompt_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
}

type verificationResponse struct {
	SelectedIndex   int    `json:"selected_index"`
	Confidence      string `json:"confidence"`
	Reasoning       string `json:"reasoning"`
	PotentialIssues string `json:"potential_issues"`
}

func (v *Validator) ValidateBatch(ctx context.Context, batch *GeneratedBatch) (*BatchValidationResult, error) {
	if v.llm == nil {
		return nil, fmt.Errorf("validator not initialized (mock mode)")
	}

	result := &BatchValidationResult{
		TotalPuzzles: len(batch.Puzzles),
		Results:      make([]ValidationResult, 0, len(batch.Puzzles)),
	}

	for i, p := range batch.Puzzles {
		vr, err := v.ValidatePuzzle(ctx, p)
		if err != nil {
			v.logger.Warn("verification failed, passing as unvalidated",
				zap.Int("puzzle", i+1), zap.Error(err))
			vr = &ValidationResult{
				SelectedIndex: p.CorrectIndex,
				Confidence:    "low",
				Reasoning:     fmt.Sprintf("validation error: %v", err),
			}
		}
		vr.PuzzleIndex = i
		vr.GeneratedIndex = p.CorrectIndex

		if vr.SelectedIndex == p.CorrectIndex {
			vr.Matches = true
			if vr.Confidence == "high" {
				result.PassedCount++
			} else {
				result.FlaggedCount++
			}
		} else {
			vr.Matches = false
			result.RejectedCount++
		}

		result.TotalPromptTokens += vr.PromptTokens
		result.TotalOutputTokens += vr.OutputTokens
		result.Results = append(result.Results, *vr)
	}

	return result, nil
}

func (v *Validator) ValidatePuzzle(ctx context.Context, p GeneratedPuzzle) (*ValidationResult, error) {
	prompt := buildVerificationPrompt(p)

	resp, err := v.llm.Generate(ctx, verificationSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("verification call failed: %w", err)
	}

	cleaned := stripCodeFences(resp.Content)
	var vResp verificationResponse
	if err := json.Unmarshal([]byte(cleaned), &vResp); err != nil {
		return nil, fmt.Errorf("failed to parse verification response: %w", err)
	}

	return &ValidationResult{
		SelectedIndex:   vResp.SelectedIndex,
		Confidence:      vResp.Confidence,
		Reasoning:       vResp.Reasoning,
		PotentialIssues: vResp.PotentialIssues,
		PromptTokens:    resp.PromptTokens,
		OutputTokens:    resp.OutputTokens,
	}, nil
}

const verificationSystemPrompt = `You are an expert puzzle solver reviewing a puzzle for a cognitive training game. Solve the puzzle yourself without looking at any answer key, then report which option you selected. Think through each option systematically before answering. Respond with JSON only.`

func buildVerificationPrompt(p GeneratedPuzzle) string {
	var sb strings.Builder

	sb.WriteString("PUZZLE:\n")
	sb.WriteString(p.Question)
	sb.WriteString("\n\nOPTIONS:\n")

	for i, opt := range p.Options {
		sb.WriteString(fmt.Sprintf("(%d) %s\n", i, opt))
	}

	sb.WriteString(`
Select the BEST option. Respond with JSON only:
{
  "selected_index": 2,
  "confidence": "high",
  "reasoning": "Step-by-step explanation of why you selected this option and why each other option fails...",
  "potential_issues": "Any ambiguity or problems you notice with the puzzle construction..."
}

confidence must be one of: "high", "medium", "low"
selected_index is zero-based`)

	return sb.String()
}

// ── Ambiguity Check ────────────────────────────────────────

type AmbiguityResult struct {
	PuzzleIndex           int                  `json:"puzzle_index"`
	Challenges            []AmbiguityChallenge `json:"challenges"`
	OverallQuality        string               `json:"overall_quality"`
	OverallRecommendation string               `json:"overall_recommendation"`
	PromptTokens          int                  `json:"prompt_tokens"`
	OutputTokens          int                  `json:"output_tokens"`
}

type AmbiguityChallenge struct {
	OptionIndex           int    `json:"option_index"`
	DefenseStrength       string `json:"defense_strength"`
	DefenseArgument       string `json:"defense_argument"`
	CorrectAnswerWeakness string `json:"correct_answer_weakness"`
	Recommendation        string `json:"recommendation"`
}

type ambiguityResponse struct {
	Challenges            []AmbiguityChallenge `json:"challenges"`
	OverallQuality        string               `json:"overall_quality"`
	OverallRecommendation string               `json:"overall_recommendation"`
}

func (v *Validator) AmbiguityCheckBatch(ctx context.Context, batch *GeneratedBatch) ([]AmbiguityResult, error) {
	if v.llm == nil {
		return nil, fmt.Errorf("validator not initialized (mock mode)")
	}

	results := make([]AmbiguityResult, 0, len(batch.Puzzles))

	for i, p := range batch.Puzzles {
		ar, err := v.AmbiguityCheckPuzzle(ctx, p)
		if err != nil {
			v.logger.Warn("ambiguity check failed, passing as clean",
				zap.Int("puzzle", i+1), zap.Error(err))
			ar = &AmbiguityResult{
				OverallQuality:        "medium",
				OverallRecommendation: "accept",
			}
		}
		ar.PuzzleIndex = i
		results = append(results, *ar)
	}

	return results, nil
}

func (v *Validator) AmbiguityCheckPuzzle(ctx context.Context, p GeneratedPuzzle) (*AmbiguityResult, error) {
	prompt := buildAmbiguityPrompt(p)

	resp, err := v.llm.Generate(ctx, ambiguitySystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("ambiguity call failed: %w", err)
	}

	cleaned := stripCodeFences(resp.Content)
	var aResp ambiguityResponse
	if err := json.Unmarshal([]byte(cleaned), &aResp); err != nil {
		return nil, fmt.Errorf("failed to parse ambiguity response: %w", err)
	}

	return &AmbiguityResult{
		Challenges:            aResp.Challenges,
		OverallQuality:        aResp.OverallQuality,
		OverallRecommendation: aResp.OverallRecommendation,
		PromptTokens:          resp.PromptTokens,
		OutputTokens:          resp.OutputTokens,
	}, nil
}

const ambiguitySystemPrompt = `You are reviewing a puzzle for a cognitive training game. Your job is to try to argue that each wrong option could also satisfy the puzzle's rule. If any wrong option admits a compelling argument, the puzzle is ambiguous and should be flagged. Respond with JSON only.`

func buildAmbiguityPrompt(p GeneratedPuzzle) string {
	var sb strings.Builder

	sb.WriteString("PUZZLE:\n")
	sb.WriteString(p.Question)
	sb.WriteString("\n\n")

	correctText := ""
	if p.CorrectIndex >= 0 && p.CorrectIndex < len(p.Options) {
		correctText = p.Options[p.CorrectIndex]
	}

	sb.WriteString(fmt.Sprintf("MARKED CORRECT: (%d) %s\n\n", p.CorrectIndex, correctText))
	sb.WriteString("INCORRECT OPTIONS TO CHALLENGE:\n")

	for i, opt := range p.Options {
		if i != p.CorrectIndex {
			sb.WriteString(fmt.Sprintf("(%d) %s\n", i, opt))
		}
	}

	sb.WriteString(`
For each incorrect option, make the STRONGEST possible argument that it could satisfy the puzzle's rule. Then assess whether the marked correct option is truly the only defensible answer.

Respond with JSON only:
{
  "challenges": [
    {
      "option_index": 0,
      "defense_strength": "weak",
      "defense_argument": "The strongest case for this option...",
      "correct_answer_weakness": "Any weakness in the marked correct option...",
      "recommendation": "accept"
    }
  ],
  "overall_quality": "high",
  "overall_recommendation": "accept"
}

defense_strength must be one of: "strong", "moderate", "weak", "none"
recommendation must be one of: "accept", "flag", "reject"
overall_quality must be one of: "high", "medium", "low"
overall_recommendation must be one of: "accept", "flag", "reject"`)

	return sb.String()
}

// DetermineAmbiguityScore collapses challenge results into a single label.
func DetermineAmbiguityScore(challenges []AmbiguityChallenge) string {
	hasStrong := false
	moderateCount := 0

	for _, c := range challenges {
		switch c.DefenseStrength {
		case "strong":
			hasStrong = true
		case "moderate":
			moderateCount++
		}
	}

	if hasStrong {
		return "ambiguous"
	}
	if moderateCount > 0 {
		return "minor_concern"
	}
	return "clean"
}
