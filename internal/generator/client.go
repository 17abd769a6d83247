package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/models"
)

// LLMClient is the interface all generator backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient and adds puzzle-specific batch methods.
type Generator struct {
	llm    LLMClient
	model  string
	logger *zap.Logger
}

func NewGenerator(cfg config.GeneratorConfig, logger *zap.Logger) *Generator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("USE_CLI_GENERATOR") == "true" {
		cliPath := os.Getenv("CLAUDE_CLI_PATH")
		if cliPath == "" {
			cliPath = "claude"
		}
		llm = NewCLIClient(cliPath)
		model = "claude-cli"
		logger.Info("generator using claude CLI", zap.String("path", cliPath))
	} else if cfg.Mock {
		llm = NewMockClient()
		logger.Info("generator using mock data")
	} else {
		model = cfg.Model
		llm = NewAPIClient(model, cfg.MaxTokens, logger)
		logger.Info("generator using anthropic API", zap.String("model", model))
	}

	return &Generator{llm: llm, model: model, logger: logger}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GeneratePuzzleBatch asks the backing model for count puzzles of one type
// and difficulty, then parses and validates the response. Soft issues such
// as repeated surface content are logged, not rejected.
func (g *Generator) GeneratePuzzleBatch(ctx context.Context, pt models.PuzzleType, difficulty models.DifficultyLabel, count int) (*GeneratedBatch, *LLMResponse, error) {
	systemPrompt := SystemPrompt()
	userPrompt := BuildUserPrompt(pt, difficulty, count)

	resp, err := g.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s batch: %w", pt, err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse %s response: %w", pt, err)
	}

	for _, w := range BatchDiversityWarnings(batch) {
		g.logger.Warn("batch diversity", zap.String("type", string(pt)), zap.String("detail", w))
	}

	return batch, resp, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewAPIClient(model string, maxTokens int, logger *zap.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model, maxTokens: maxTokens, logger: logger}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleep := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Warn("retrying anthropic call",
				zap.Duration("backoff", sleep),
				zap.Int("attempt", attempt+1))
			time.Sleep(sleep)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.logger.Warn("anthropic call failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate returns a deterministic batch derived from the prompt text, so
// different type and difficulty requests produce distinct puzzle content.
func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      buildMockJSON(userPrompt),
		PromptTokens: 800,
		OutputTokens: 1600,
	}, nil
}

var mockPhrasings = []string{
	"[Mock] What number comes next in the series %s?",
	"[Mock] Which number continues the series %s?",
	"[Mock] The series %s follows one rule. What is the next term?",
	"[Mock] Find the next number in the progression %s.",
	"[Mock] A counting machine prints %s. What does it print next?",
	"[Mock] Complete the series %s by choosing its next entry.",
}

func buildMockJSON(seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	tag := int(h.Sum32())

	batch := GeneratedBatch{Puzzles: make([]GeneratedPuzzle, 0, 6)}
	for i := 0; i < 6; i++ {
		start := 2 + (tag+i)%9
		step := 2 + (tag>>3)%5
		series := []int{start, start + step, start + 2*step, start + 3*step}
		next := start + 4*step

		correctIdx := i % 4
		distractors := []int{next - step + 1, next + 1, next + step}
		options := make([]string, 0, 4)
		for j := 0; j < 4; j++ {
			if j == correctIdx {
				options = append(options, strconv.Itoa(next))
			} else {
				options = append(options, strconv.Itoa(distractors[0]))
				distractors = distractors[1:]
			}
		}

		seq := fmt.Sprintf("%d, %d, %d, %d", series[0], series[1], series[2], series[3])
		batch.Puzzles = append(batch.Puzzles, GeneratedPuzzle{
			Question:     fmt.Sprintf(mockPhrasings[i], seq),
			Options:      options,
			CorrectIndex: correctIdx,
			Explanation:  fmt.Sprintf("Each term increases by %d, so the term after %d is %d.", step, series[3], next),
		})
	}

	out, _ := json.Marshal(batch)
	return string(out)
}
