package puzzles

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/dna"
	"github.com/puzzlemind/backend/internal/generator"
	"github.com/puzzlemind/backend/internal/models"
)

func testService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	cfg := config.DefaultConfig().Generator
	cfg.Mock = true
	cfg.ValidationEnabled = false
	cfg.AmbiguityEnabled = false
	cfg.MinStock = 5
	cfg.BatchSize = 3
	cfg.WorkerInterval = 1

	store := NewMemoryStore()
	gen := generator.NewGenerator(cfg, zap.NewNop())
	svc := NewService(store, gen, nil, dna.NewAnalyzer(), cfg, zap.NewNop())
	return svc, store
}

func seedPuzzle(t *testing.T, store *MemoryStore, id string, pt models.PuzzleType, label models.DifficultyLabel) {
	t.Helper()
	l := label
	if _, err := store.Insert(context.Background(), []models.Puzzle{{
		PuzzleID:        id,
		Type:            pt,
		Question:        "seeded question " + id,
		Options:         []string{"a", "b", "c", "d"},
		CorrectIdx:      0,
		Difficulty:      &l,
		DifficultyScore: 0.5,
	}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCandidatesForUser_ExcludesRecentlyServed(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	// Seed past the stock floor so the async top-up never fires here.
	for i := 0; i < 6; i++ {
		seedPuzzle(t, store, fmt.Sprintf("p%d", i), models.TypePattern, models.DifficultyEasy)
	}

	rec := &models.Recommendation{
		Puzzle:   models.PuzzleCandidate{PuzzleID: "p0"},
		Category: models.CategorySkill,
	}
	if err := svc.MarkServed(ctx, "u1", rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.CandidatesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates after serving one, got %d", len(got))
	}
	for _, c := range got {
		if c.PuzzleID == "p0" {
			t.Error("served puzzle p0 should be excluded from the pool")
		}
	}

	// Another user still sees the full inventory
	other, err := svc.CandidatesForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != 6 {
		t.Errorf("expected 6 candidates for an unserved user, got %d", len(other))
	}
}

func TestCandidatesForUser_ThinPoolQueuesStock(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	// Non-empty but under the floor, so only the async path fires.
	seedPuzzle(t, store, "p0", models.TypePattern, models.DifficultyEasy)
	seedPuzzle(t, store, "p1", models.TypePattern, models.DifficultyEasy)

	got, err := svc.CandidatesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the 2 seeded candidates, got %d", len(got))
	}

	// The stock check runs async; wait for all 24 cells to be queued.
	deadline := time.Now().Add(2 * time.Second)
	for {
		tasks, err := store.PendingGenerations(ctx, 48)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks) == 24 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 24 queued cells, got %d", len(tasks))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestCandidatesForUser_MockModeFillsEmptyPoolInline(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	got, err := svc.CandidatesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected an empty pool to fill synchronously in mock mode")
	}
	for _, c := range got {
		if c.PuzzleID == "" || len(c.Options) != 4 {
			t.Errorf("malformed inline-generated candidate: %+v", c)
		}
	}

	// The fill worked the normal queue; claimed tasks are done, the
	// rest stay pending for the worker.
	tasks, err := store.PendingGenerations(ctx, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) == 0 || len(tasks) >= 24 {
		t.Errorf("expected a partially drained queue, got %d pending", len(tasks))
	}
}

func TestMarkServedAndRecordOutcome(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		seedPuzzle(t, store, fmt.Sprintf("p%d", i), models.TypeAnalogy, models.DifficultyMedium)
	}

	rec := &models.Recommendation{
		Puzzle:   models.PuzzleCandidate{PuzzleID: "p3"},
		Category: models.CategoryChallenge,
	}
	if err := svc.MarkServed(ctx, "u1", rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.RecordOutcome(ctx, "p3", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := svc.PuzzleByID(ctx, "p3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TimesServed != 1 || p.TimesCorrect != 1 {
		t.Errorf("expected served=1 correct=1, got served=%d correct=%d", p.TimesServed, p.TimesCorrect)
	}
}

func TestEnsureStock_QueuesEveryLowCell(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	svc.EnsureStock(ctx)

	tasks, err := store.PendingGenerations(ctx, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 24 {
		t.Fatalf("expected 8 types x 3 difficulties queued, got %d", len(tasks))
	}
	for _, task := range tasks {
		// Empty cells need the full floor, which is above the batch size
		if task.Count != 5 {
			t.Errorf("task %s/%s: expected count 5, got %d", task.Type, task.Difficulty, task.Count)
		}
		if task.Status != "pending" {
			t.Errorf("task %s/%s: expected pending, got %s", task.Type, task.Difficulty, task.Status)
		}
	}
}

func TestEnsureStock_SkipsStockedCell(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedPuzzle(t, store, fmt.Sprintf("p%d", i), models.TypePattern, models.DifficultyEasy)
	}

	svc.EnsureStock(ctx)

	tasks, err := store.PendingGenerations(ctx, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 23 {
		t.Fatalf("expected 23 queued cells with one stocked, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.Type == models.TypePattern && task.Difficulty == models.DifficultyEasy {
			t.Error("stocked pattern/easy cell should not be queued")
		}
	}
}

func TestEnsureStock_SmallDeficitUsesBatchSize(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	// 4 fresh puzzles against a floor of 5: deficit 1, rounded up to the
	// batch size of 3.
	for i := 0; i < 4; i++ {
		seedPuzzle(t, store, fmt.Sprintf("p%d", i), models.TypeLogicGrid, models.DifficultyHard)
	}

	svc.EnsureStock(ctx)

	tasks, err := store.PendingGenerations(ctx, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, task := range tasks {
		if task.Type == models.TypeLogicGrid && task.Difficulty == models.DifficultyHard {
			found = true
			if task.Count != 3 {
				t.Errorf("expected batch-size count 3, got %d", task.Count)
			}
		}
	}
	if !found {
		t.Error("expected logic_grid/hard to be queued")
	}
}

func TestGenerateAndStore_MockBatch(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	inserted, err := svc.GenerateAndStore(ctx, models.TypeNumberSeries, models.DifficultyMedium, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 6 {
		t.Fatalf("expected 6 puzzles from a mock batch, got %d", inserted)
	}

	rows, err := store.CandidatesForUser(ctx, "u1", time.Now().Add(-time.Hour), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 stored puzzles, got %d", len(rows))
	}
	for _, p := range rows {
		if p.PuzzleID == "" {
			t.Error("expected a content-derived puzzle id")
		}
		if p.Type != models.TypeNumberSeries {
			t.Errorf("expected number_series, got %s", p.Type)
		}
		if p.Difficulty == nil || *p.Difficulty != models.DifficultyMedium {
			t.Error("expected the requested difficulty label on the stored row")
		}
		if p.DifficultyScore <= 0 || p.DifficultyScore >= 1 {
			t.Errorf("difficulty score outside (0,1): %f", p.DifficultyScore)
		}
		if p.QualityScore == nil || *p.QualityScore < 0.5 {
			t.Error("expected a passing quality score on the stored row")
		}
		if p.ModelUsed != "mock" {
			t.Errorf("expected model 'mock', got %q", p.ModelUsed)
		}
		if p.Explanation == "" {
			t.Error("expected an explanation on the stored row")
		}
	}

	// The same batch again dedups on content identity
	again, err := svc.GenerateAndStore(ctx, models.TypeNumberSeries, models.DifficultyMedium, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != 0 {
		t.Errorf("expected duplicate batch to insert 0, got %d", again)
	}
}

func TestProcessQueue_RunsPendingTasks(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	if err := store.QueueGeneration(ctx, models.TypePattern, models.DifficultyEasy, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.ProcessQueue(ctx)

	pending, err := store.PendingGenerations(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending tasks after processing, got %d", len(pending))
	}

	fresh, err := store.FreshCount(ctx, models.TypePattern, models.DifficultyEasy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh != 6 {
		t.Errorf("expected 6 fresh puzzles after generation, got %d", fresh)
	}

	store.mu.Lock()
	status := store.queue[0].Status
	store.mu.Unlock()
	if status != "completed" {
		t.Errorf("expected task marked completed, got %s", status)
	}
}

// insertFailStore wraps MemoryStore with a failing Insert to exercise the
// task failure path.
type insertFailStore struct {
	*MemoryStore
}

func (s insertFailStore) Insert(ctx context.Context, rows []models.Puzzle) (int, error) {
	return 0, fmt.Errorf("disk full")
}

func TestProcessQueue_MarksFailedTasks(t *testing.T) {
	cfg := config.DefaultConfig().Generator
	cfg.Mock = true
	cfg.ValidationEnabled = false
	cfg.AmbiguityEnabled = false
	cfg.MinStock = 5
	cfg.BatchSize = 3

	mem := NewMemoryStore()
	gen := generator.NewGenerator(cfg, zap.NewNop())
	svc := NewService(insertFailStore{mem}, gen, nil, dna.NewAnalyzer(), cfg, zap.NewNop())
	ctx := context.Background()

	if err := mem.QueueGeneration(ctx, models.TypeAnalogy, models.DifficultyHard, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.ProcessQueue(ctx)

	mem.mu.Lock()
	status := mem.queue[0].Status
	mem.mu.Unlock()
	if status != "failed" {
		t.Errorf("expected task marked failed, got %s", status)
	}
}
