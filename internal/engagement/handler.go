package engagement

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/models"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func getUserID(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value("user_id").(string)
	return uid, ok && uid != ""
}

// Summary handles GET /api/v1/engagement/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load engagement summary", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load engagement summary"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// BuyPowerUp handles POST /api/v1/engagement/powerups/{kind}/buy.
func (h *Handler) BuyPowerUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	kind := models.PowerUpKind(mux.Vars(r)["kind"])
	if !models.ValidPowerUpKinds[kind] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown power-up"})
		return
	}

	resp, err := h.service.BuyPowerUp(r.Context(), userID, kind)
	if err != nil {
		if errors.Is(err, ErrInsufficientXP) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Not enough XP for this power-up"})
			return
		}
		h.logger.Error("power-up purchase failed", zap.String("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to buy power-up"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UsePowerUp handles POST /api/v1/engagement/powerups/{kind}/use. The body
// is optional and may carry the puzzle the power-up was spent on.
func (h *Handler) UsePowerUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	kind := models.PowerUpKind(mux.Vars(r)["kind"])
	if !models.ValidPowerUpKinds[kind] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown power-up"})
		return
	}

	var req models.UsePowerUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.UsePowerUp(r.Context(), userID, kind, req.PuzzleID)
	if err != nil {
		if errors.Is(err, ErrPowerUpNotOwned) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No charges of this power-up left"})
			return
		}
		h.logger.Error("power-up use failed", zap.String("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to use power-up"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
