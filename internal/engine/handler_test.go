package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/models"
	"github.com/puzzlemind/backend/internal/puzzles"
)

// fakeInventory serves a fixed pool and records bookkeeping calls.
type fakeInventory struct {
	pool    []models.PuzzleCandidate
	rows    map[string]*models.Puzzle
	served  []string
	graded  map[string]bool
	poolErr error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		rows:   make(map[string]*models.Puzzle),
		graded: make(map[string]bool),
	}
}

func (f *fakeInventory) CandidatesForUser(ctx context.Context, userID string) ([]models.PuzzleCandidate, error) {
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return f.pool, nil
}

func (f *fakeInventory) PuzzleByID(ctx context.Context, puzzleID string) (*models.Puzzle, error) {
	p, ok := f.rows[puzzleID]
	if !ok {
		return nil, puzzles.ErrNotFound
	}
	return p, nil
}

func (f *fakeInventory) MarkServed(ctx context.Context, userID string, rec *models.Recommendation) error {
	f.served = append(f.served, rec.Puzzle.PuzzleID)
	return nil
}

func (f *fakeInventory) RecordOutcome(ctx context.Context, puzzleID string, correct bool) error {
	f.graded[puzzleID] = correct
	return nil
}

func testHandler(t *testing.T) (*Handler, *fakeInventory) {
	t.Helper()
	e, _ := testEngine(t, 7)
	inv := newFakeInventory()
	return NewHandler(e, inv, zap.NewNop()), inv
}

func authedRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	return r.WithContext(context.WithValue(r.Context(), "user_id", "u1"))
}

func TestHandler_NextPuzzle(t *testing.T) {
	h, inv := testHandler(t)
	for i := 0; i < 5; i++ {
		inv.pool = append(inv.pool, labeled(fmt.Sprintf("q%d", i), models.TypePattern, models.DifficultyEasy))
	}

	w := httptest.NewRecorder()
	h.NextPuzzle(w, authedRequest(http.MethodPost, "/api/v1/puzzles/next", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.NextPuzzleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Puzzle.PuzzleID == "" || resp.RecommendationID == "" {
		t.Error("expected puzzle and recommendation ids to be set")
	}
	if resp.State != models.StateNewUser {
		t.Errorf("expected new_user state, got %s", resp.State)
	}

	// The serve was recorded against the chosen puzzle
	if len(inv.served) != 1 || inv.served[0] != resp.Puzzle.PuzzleID {
		t.Errorf("expected one served entry for %s, got %v", resp.Puzzle.PuzzleID, inv.served)
	}
}

func TestHandler_NextPuzzle_RequiresAuth(t *testing.T) {
	h, _ := testHandler(t)

	w := httptest.NewRecorder()
	h.NextPuzzle(w, httptest.NewRequest(http.MethodPost, "/api/v1/puzzles/next", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a user, got %d", w.Code)
	}
}

func TestHandler_NextPuzzle_EmptyPool(t *testing.T) {
	h, _ := testHandler(t)

	w := httptest.NewRecorder()
	h.NextPuzzle(w, authedRequest(http.MethodPost, "/api/v1/puzzles/next", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for an empty pool, got %d", w.Code)
	}
}

func TestHandler_NextPuzzle_PoolSizeCap(t *testing.T) {
	h, inv := testHandler(t)
	inv.pool = []models.PuzzleCandidate{
		labeled("first", models.TypePattern, models.DifficultyEasy),
		labeled("second", models.TypeAnalogy, models.DifficultyHard),
	}

	// Capping to 1 leaves only the first candidate eligible
	want := ""
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.NextPuzzle(w, authedRequest(http.MethodPost, "/api/v1/puzzles/next", models.NextPuzzleRequest{PoolSize: 1}))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp models.NextPuzzleResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if want == "" {
			want = resp.Puzzle.PuzzleID
		}
		if resp.Puzzle.PuzzleID != want {
			t.Fatalf("expected the capped pool to always serve %s, got %s", want, resp.Puzzle.PuzzleID)
		}
	}
}

func TestHandler_RecordResponse_GradesAnswer(t *testing.T) {
	h, inv := testHandler(t)
	label := models.DifficultyMedium
	inv.rows["p1"] = &models.Puzzle{
		PuzzleID:        "p1",
		Type:            models.TypeNumberSeries,
		Question:        "What number comes next in the series 2, 4, 6, 8?",
		Options:         []string{"9", "10", "11", "12"},
		CorrectIdx:      1,
		Difficulty:      &label,
		DifficultyScore: 0.55,
		Explanation:     "Each term increases by 2, so the term after 8 is 10.",
	}

	w := httptest.NewRecorder()
	h.RecordResponse(w, authedRequest(http.MethodPost, "/api/v1/puzzles/response", models.RecordResponseRequest{
		PuzzleID:      "p1",
		SelectedIndex: 1,
		SolveTimeMs:   4000,
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.RecordResponseResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !resp.Correct || resp.CorrectIdx != 1 {
		t.Errorf("expected a correct grade on index 1, got correct=%v idx=%d", resp.Correct, resp.CorrectIdx)
	}
	if resp.Explanation == "" {
		t.Error("expected the stored explanation in the response")
	}
	if resp.SkillLevel <= 0 {
		t.Errorf("expected a positive skill level, got %f", resp.SkillLevel)
	}
	if graded, ok := inv.graded["p1"]; !ok || !graded {
		t.Error("expected the outcome recorded against the inventory")
	}

	// A wrong answer grades false and still reveals the correct index
	w = httptest.NewRecorder()
	h.RecordResponse(w, authedRequest(http.MethodPost, "/api/v1/puzzles/response", models.RecordResponseRequest{
		PuzzleID:      "p1",
		SelectedIndex: 3,
		SolveTimeMs:   2500,
	}))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Correct || resp.CorrectIdx != 1 {
		t.Errorf("expected an incorrect grade, got correct=%v idx=%d", resp.Correct, resp.CorrectIdx)
	}
}

func TestHandler_RecordResponse_Validation(t *testing.T) {
	h, _ := testHandler(t)

	// Missing puzzle_id
	w := httptest.NewRecorder()
	h.RecordResponse(w, authedRequest(http.MethodPost, "/api/v1/puzzles/response", models.RecordResponseRequest{
		SelectedIndex: 1,
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without puzzle_id, got %d", w.Code)
	}

	// Out-of-range selection
	w = httptest.NewRecorder()
	h.RecordResponse(w, authedRequest(http.MethodPost, "/api/v1/puzzles/response", models.RecordResponseRequest{
		PuzzleID:      "p1",
		SelectedIndex: 4,
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for selected_index 4, got %d", w.Code)
	}

	// Unknown puzzle
	w = httptest.NewRecorder()
	h.RecordResponse(w, authedRequest(http.MethodPost, "/api/v1/puzzles/response", models.RecordResponseRequest{
		PuzzleID:      "ghost",
		SelectedIndex: 0,
	}))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown puzzle, got %d", w.Code)
	}
}

func TestHandler_UserMetrics(t *testing.T) {
	h, _ := testHandler(t)

	w := httptest.NewRecorder()
	h.UserMetrics(w, authedRequest(http.MethodGet, "/api/v1/users/me/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp models.MetricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.UserMetrics.TotalPuzzlesSolved != 0 {
		t.Errorf("expected a fresh user, got %d solved", resp.UserMetrics.TotalPuzzlesSolved)
	}
}

func TestHandler_RetentionRisk(t *testing.T) {
	h, _ := testHandler(t)

	w := httptest.NewRecorder()
	h.RetentionRisk(w, authedRequest(http.MethodGet, "/api/v1/users/me/risk", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp models.RetentionRiskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.State != models.StateNewUser {
		t.Errorf("expected new_user, got %s", resp.State)
	}
	if resp.Risk < 0 || resp.Risk > 1 {
		t.Errorf("risk outside [0,1]: %f", resp.Risk)
	}
}

func TestHandler_PuzzleTypes(t *testing.T) {
	h, _ := testHandler(t)

	w := httptest.NewRecorder()
	h.PuzzleTypes(w, httptest.NewRequest(http.MethodGet, "/api/v1/puzzles/types", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []puzzleTypeInfo
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(resp) != len(models.ValidPuzzleTypes) {
		t.Fatalf("expected %d types, got %d", len(models.ValidPuzzleTypes), len(resp))
	}
	for i := 1; i < len(resp); i++ {
		if resp[i-1].Type >= resp[i].Type {
			t.Error("expected types sorted by name")
		}
	}
	for _, info := range resp {
		if len(info.Dimensions) == 0 {
			t.Errorf("expected dimensions for %s", info.Type)
		}
	}
}
