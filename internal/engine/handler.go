package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/models"
	"github.com/puzzlemind/backend/internal/puzzles"
)

// Inventory is the puzzle supply the HTTP layer serves from. The concrete
// implementation lives in the puzzles package.
type Inventory interface {
	CandidatesForUser(ctx context.Context, userID string) ([]models.PuzzleCandidate, error)
	PuzzleByID(ctx context.Context, puzzleID string) (*models.Puzzle, error)
	MarkServed(ctx context.Context, userID string, rec *models.Recommendation) error
	RecordOutcome(ctx context.Context, puzzleID string, correct bool) error
}

type Handler struct {
	engine    *Engine
	inventory Inventory
	logger    *zap.Logger
}

func NewHandler(engine *Engine, inventory Inventory, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, inventory: inventory, logger: logger}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value("user_id").(string)
	return uid, ok && uid != ""
}

// NextPuzzle serves one recommendation: pull the user's candidate pool from
// the inventory, run the selection pipeline, and record the serve.
func (h *Handler) NextPuzzle(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	// The body is optional; an empty read keeps the defaults.
	var req models.NextPuzzleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	candidates, err := h.inventory.CandidatesForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("candidate fetch failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load puzzle inventory"})
		return
	}
	if req.PoolSize > 0 && len(candidates) > req.PoolSize {
		candidates = candidates[:req.PoolSize]
	}

	rec, err := h.engine.GetNextPuzzle(r.Context(), userID, candidates)
	if err != nil {
		if errors.Is(err, ErrEmptyCandidatePool) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No puzzles available right now"})
			return
		}
		h.logger.Error("recommendation failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to pick a puzzle"})
		return
	}

	// Serving bookkeeping must not fail the request that already succeeded.
	if err := h.inventory.MarkServed(r.Context(), userID, rec); err != nil {
		h.logger.Warn("mark served failed",
			zap.String("user_id", userID),
			zap.String("puzzle_id", rec.Puzzle.PuzzleID),
			zap.Error(err))
	}

	writeJSON(w, http.StatusOK, models.NextPuzzleResponse{
		Puzzle:              rec.Puzzle.Served(),
		RecommendationID:    rec.RecommendationID,
		Category:            rec.Category,
		SelectionReason:     rec.SelectionReason,
		PredictedSuccess:    rec.PredictedSuccess,
		PredictedEngagement: rec.PredictedEngagement,
		State:               rec.State,
	})
}

// RecordResponse grades a submitted answer against the inventory row and
// folds the outcome into the user's signature.
func (h *Handler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.RecordResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.PuzzleID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "puzzle_id is required"})
		return
	}
	if req.SelectedIndex < 0 || req.SelectedIndex > 3 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "selected_index must be between 0 and 3"})
		return
	}

	row, err := h.inventory.PuzzleByID(r.Context(), req.PuzzleID)
	if err != nil {
		if errors.Is(err, puzzles.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Puzzle not found"})
			return
		}
		h.logger.Error("puzzle lookup failed", zap.String("puzzle_id", req.PuzzleID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load puzzle"})
		return
	}

	correct := req.SelectedIndex == row.CorrectIdx

	// Self-reports are optional and default to neutral.
	confidence, engagement := 0.5, 0.5
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	if req.Engagement != nil {
		engagement = *req.Engagement
	}

	outcome, err := h.engine.RecordResponse(r.Context(), userID, models.ResponseReport{
		PuzzleID:    req.PuzzleID,
		Type:        row.Type,
		Difficulty:  row.DifficultyScore,
		Correct:     correct,
		SolveTimeMs: req.SolveTimeMs,
		Confidence:  confidence,
		Engagement:  engagement,
		UsedPowerUp: req.UsedPowerUp,
	})
	if err != nil {
		h.logger.Error("record response failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to record response"})
		return
	}

	if err := h.inventory.RecordOutcome(r.Context(), req.PuzzleID, correct); err != nil {
		h.logger.Warn("outcome bookkeeping failed",
			zap.String("puzzle_id", req.PuzzleID),
			zap.Error(err))
	}

	writeJSON(w, http.StatusOK, models.RecordResponseResponse{
		Correct:     correct,
		CorrectIdx:  row.CorrectIdx,
		Explanation: row.Explanation,
		SkillLevel:  outcome.SkillLevel,
		XPAwarded:   outcome.XPAwarded,
	})
}

// UserMetrics returns the dashboard metrics for the authenticated user.
func (h *Handler) UserMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	writeJSON(w, http.StatusOK, h.engine.GetMetrics(r.Context(), userID))
}

// RetentionRisk returns the churn risk estimate for the authenticated user.
func (h *Handler) RetentionRisk(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	writeJSON(w, http.StatusOK, h.engine.GetRetentionRisk(r.Context(), userID))
}

type puzzleTypeInfo struct {
	Type       models.PuzzleType           `json:"type"`
	Dimensions []models.CognitiveDimension `json:"dimensions"`
}

// PuzzleTypes lists the taxonomy with the cognitive dimensions each type
// exercises.
func (h *Handler) PuzzleTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]puzzleTypeInfo, 0, len(models.PuzzleDimensions))
	for pt, dims := range models.PuzzleDimensions {
		out = append(out, puzzleTypeInfo{Type: pt, Dimensions: dims})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
