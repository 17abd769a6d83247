package puzzles

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/dna"
	"github.com/puzzlemind/backend/internal/generator"
	"github.com/puzzlemind/backend/internal/metrics"
	"github.com/puzzlemind/backend/internal/models"
)

const (
	// servedCooldown is how long a served puzzle stays out of a user's
	// candidate pool before it may repeat.
	servedCooldown = 24 * time.Hour

	// candidateLimit caps the pool handed to the recommendation engine
	// per request.
	candidateLimit = 40

	// queueClaim is how many pending generation tasks one worker tick
	// picks up.
	queueClaim = 5

	// generateConcurrency bounds parallel model calls during queue
	// processing.
	generateConcurrency = 2
)

// Service owns the puzzle inventory. It hands candidate pools to the
// recommendation engine, records serving and outcome bookkeeping, and keeps
// every type and difficulty cell stocked through the generation queue.
type Service struct {
	store     Store
	generator *generator.Generator
	validator *generator.Validator
	analyzer  *dna.Analyzer
	cfg       config.GeneratorConfig
	logger    *zap.Logger

	// stockFlight collapses concurrent thin-pool stock checks into one walk.
	stockFlight singleflight.Group
}

func NewService(store Store, gen *generator.Generator, val *generator.Validator, analyzer *dna.Analyzer, cfg config.GeneratorConfig, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		generator: gen,
		validator: val,
		analyzer:  analyzer,
		cfg:       cfg,
		logger:    logger,
	}
}

// ── Serving ─────────────────────────────────────────────

// CandidatesForUser returns the candidate pool for one user: servable
// puzzles minus anything they saw inside the cooldown window, least-served
// first. A thin pool triggers an async stock check so the next request
// finds more; concurrent triggers share one walk. In mock mode an empty
// pool is filled inline instead.
func (s *Service) CandidatesForUser(ctx context.Context, userID string) ([]models.PuzzleCandidate, error) {
	cutoff := time.Now().Add(-servedCooldown)
	rows, err := s.store.CandidatesForUser(ctx, userID, cutoff, candidateLimit)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 && s.cfg.Mock {
		// Mock generation is instant; fill inline so a fresh dev
		// database serves on the first request. Concurrent first
		// requests share one fill.
		s.stockFlight.Do("mock_fill", func() (interface{}, error) {
			s.EnsureStock(ctx)
			s.ProcessQueue(ctx)
			return nil, nil
		})
		rows, err = s.store.CandidatesForUser(ctx, userID, cutoff, candidateLimit)
		if err != nil {
			return nil, err
		}
	}

	if len(rows) < s.cfg.MinStock {
		go s.stockFlight.Do("ensure_stock", func() (interface{}, error) {
			s.EnsureStock(context.Background())
			return nil, nil
		})
	}

	out := make([]models.PuzzleCandidate, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Candidate())
	}
	return out, nil
}

func (s *Service) PuzzleByID(ctx context.Context, puzzleID string) (*models.Puzzle, error) {
	return s.store.ByPuzzleID(ctx, puzzleID)
}

// MarkServed records that a recommendation went out to a user, which keeps
// the puzzle out of their pool for the cooldown window.
func (s *Service) MarkServed(ctx context.Context, userID string, rec *models.Recommendation) error {
	return s.store.MarkServed(ctx, userID, rec.Puzzle.PuzzleID, string(rec.Category))
}

// RecordOutcome updates a puzzle's aggregate serve and correct counters.
func (s *Service) RecordOutcome(ctx context.Context, puzzleID string, correct bool) error {
	return s.store.RecordOutcome(ctx, puzzleID, correct)
}

// ── Stock Management ────────────────────────────────────

// EnsureStock walks every type and difficulty cell and queues generation
// wherever the count of never-served puzzles has dropped below the floor.
// Errors are logged per cell so one bad cell cannot block the rest.
func (s *Service) EnsureStock(ctx context.Context) {
	for pt := range models.ValidPuzzleTypes {
		for label := range models.ValidDifficultyLabels {
			count, err := s.store.FreshCount(ctx, pt, label)
			if err != nil {
				s.logger.Warn("stock count failed",
					zap.String("type", string(pt)),
					zap.String("difficulty", string(label)),
					zap.Error(err))
				continue
			}
			if count >= s.cfg.MinStock {
				continue
			}

			needed := s.cfg.MinStock - count
			if needed < s.cfg.BatchSize {
				needed = s.cfg.BatchSize
			}
			if err := s.store.QueueGeneration(ctx, pt, label, needed); err != nil {
				s.logger.Warn("queue generation failed",
					zap.String("type", string(pt)),
					zap.String("difficulty", string(label)),
					zap.Error(err))
				continue
			}
			s.logger.Info("generation queued",
				zap.String("type", string(pt)),
				zap.String("difficulty", string(label)),
				zap.Int("fresh", count),
				zap.Int("needed", needed))
		}
	}
}

// ProcessQueue claims a slice of pending generation tasks and runs them, a
// couple at a time so one slow model call cannot stall the whole queue.
func (s *Service) ProcessQueue(ctx context.Context) {
	tasks, err := s.store.PendingGenerations(ctx, queueClaim)
	if err != nil {
		s.logger.Warn("fetch pending generations failed", zap.Error(err))
		return
	}
	if len(tasks) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(generateConcurrency)
	for _, task := range tasks {
		g.Go(func() error {
			s.runTask(gctx, task)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("queue processing interrupted", zap.Error(err))
	}
}

func (s *Service) runTask(ctx context.Context, t GenerationTask) {
	if err := s.store.UpdateGenerationStatus(ctx, t.ID, "generating", nil); err != nil {
		s.logger.Warn("update task status failed", zap.Int64("task", t.ID), zap.Error(err))
	}

	inserted, err := s.GenerateAndStore(ctx, t.Type, t.Difficulty, t.Count)
	if err != nil {
		errMsg := err.Error()
		if uerr := s.store.UpdateGenerationStatus(ctx, t.ID, "failed", &errMsg); uerr != nil {
			s.logger.Warn("update task status failed", zap.Int64("task", t.ID), zap.Error(uerr))
		}
		metrics.GenerationFailures.Inc()
		s.logger.Warn("generation task failed",
			zap.Int64("task", t.ID),
			zap.String("type", string(t.Type)),
			zap.String("difficulty", string(t.Difficulty)),
			zap.Error(err))
		return
	}

	if err := s.store.UpdateGenerationStatus(ctx, t.ID, "completed", nil); err != nil {
		s.logger.Warn("update task status failed", zap.Int64("task", t.ID), zap.Error(err))
	}
	s.logger.Info("generation task completed",
		zap.Int64("task", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("difficulty", string(t.Difficulty)),
		zap.Int("inserted", inserted))
}

// ── Generation Pipeline ─────────────────────────────────

// GenerateAndStore runs the full pipeline for one type and difficulty cell:
// generate a batch, verify answers with a second model pass, challenge the
// distractors for ambiguity, score each puzzle, and save the survivors.
// Puzzles whose verification disagrees with the marked answer, whose
// distractors are defensible, or whose quality score classifies as reject
// are dropped before saving. It returns the number of rows inserted.
func (s *Service) GenerateAndStore(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel, count int) (int, error) {
	batch, usage, err := s.generator.GeneratePuzzleBatch(ctx, pt, label, count)
	if err != nil {
		return 0, err
	}

	// Stage 2: blind re-solve. A failure here degrades to unvalidated
	// puzzles rather than losing the batch.
	verifications := map[int]*generator.ValidationResult{}
	if s.cfg.ValidationEnabled && s.validator != nil {
		vr, err := s.validator.ValidateBatch(ctx, batch)
		if err != nil {
			s.logger.Warn("verification stage failed, saving unvalidated", zap.Error(err))
		} else {
			for i := range vr.Results {
				verifications[vr.Results[i].PuzzleIndex] = &vr.Results[i]
			}
		}
	}

	// Stage 3: adversarial distractor check. Easy puzzles skip it; their
	// distractors are rarely worth a model call.
	ambiguities := map[int]*generator.AmbiguityResult{}
	if s.cfg.AmbiguityEnabled && s.validator != nil && label != models.DifficultyEasy {
		ars, err := s.validator.AmbiguityCheckBatch(ctx, batch)
		if err != nil {
			s.logger.Warn("ambiguity stage failed, saving unchecked", zap.Error(err))
		} else {
			for i := range ars {
				ambiguities[ars[i].PuzzleIndex] = &ars[i]
			}
		}
	}

	rows := make([]models.Puzzle, 0, len(batch.Puzzles))
	rejected := 0
	for i, p := range batch.Puzzles {
		vr := verifications[i]
		ar := ambiguities[i]
		structural := generator.ComputeStructuralScore(pt, p)
		score := generator.ComputeQualityScore(vr, ar, structural)

		reject := generator.ClassifyQuality(score) == "reject"
		if vr != nil && !vr.Matches {
			reject = true
		}
		if ar != nil && generator.DetermineAmbiguityScore(ar.Challenges) == "ambiguous" {
			reject = true
		}
		if reject {
			rejected++
			s.logger.Warn("puzzle rejected",
				zap.String("type", string(pt)),
				zap.String("difficulty", string(label)),
				zap.Int("index", i),
				zap.Float64("quality", score))
			continue
		}

		cand := p.Candidate(pt, label)
		d := s.analyzer.Analyze(cand)
		q := score
		// Label the row by its calibrated score's bucket so inventory
		// counts line up with what the selector sees.
		bucket := models.BucketForScore(d.Difficulty)
		rows = append(rows, models.Puzzle{
			PuzzleID:        d.PuzzleID,
			Type:            pt,
			Question:        p.Question,
			Options:         p.Options,
			CorrectIdx:      p.CorrectIndex,
			Difficulty:      &bucket,
			DifficultyScore: d.Difficulty,
			Explanation:     p.Explanation,
			QualityScore:    &q,
			ModelUsed:       s.generator.ModelName(),
		})
	}

	inserted := 0
	if len(rows) > 0 {
		inserted, err = s.store.Insert(ctx, rows)
		if err != nil {
			return 0, err
		}
		metrics.PuzzlesGenerated.WithLabelValues(string(pt)).Add(float64(inserted))
	}

	s.logger.Info("batch stored",
		zap.String("type", string(pt)),
		zap.String("difficulty", string(label)),
		zap.Int("generated", len(batch.Puzzles)),
		zap.Int("rejected", rejected),
		zap.Int("inserted", inserted),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("output_tokens", usage.OutputTokens))
	return inserted, nil
}
