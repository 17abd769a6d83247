package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/puzzlemind/backend/internal/database"
	"github.com/puzzlemind/backend/internal/models"
)

// JWTSecret is the HMAC signing key for auth tokens. Override it through
// JWT_SECRET in any real deployment; the fallback only exists so local
// setups work out of the box.
var JWTSecret = []byte(envOr("JWT_SECRET", "puzzlemind-dev-signing-key"))

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ProfileInitializer seeds a behavioral profile for a brand-new user so
// their first puzzle request starts from a persisted baseline.
type ProfileInitializer interface {
	Initialize(ctx context.Context, userID string) bool
}

type Handler struct {
	store    Store
	profiles ProfileInitializer
	logger   *zap.Logger
}

func NewHandler(store Store, profiles ProfileInitializer, logger *zap.Logger) *Handler {
	return &Handler{store: store, profiles: profiles, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email, name, and password are required"})
		return
	}

	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Password must be at least 8 characters"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	chosenUsername := req.Username != ""
	username := req.Username
	if !chosenUsername {
		username = database.GenerateUsername(req.Name)
	}

	user := models.User{
		PublicID: uuid.NewString(),
		Email:    req.Email,
		Name:     req.Name,
		Username: username,
		Password: string(hashedPassword),
	}

	// Generated usernames can collide; retry with a fresh one a few times.
	var createErr error
	for attempt := 0; attempt < 5; attempt++ {
		createErr = h.store.Create(r.Context(), &user)
		if !errors.Is(createErr, ErrUsernameTaken) || chosenUsername {
			break
		}
		user.Username = database.GenerateUsername(req.Name)
	}

	if createErr != nil {
		switch {
		case errors.Is(createErr, ErrEmailTaken):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "An account with this email already exists"})
		case errors.Is(createErr, ErrUsernameTaken):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Username already taken"})
		default:
			h.logger.Error("create user failed", zap.Error(createErr))
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account"})
		}
		return
	}

	if h.profiles != nil {
		h.profiles.Initialize(r.Context(), user.PublicID)
	}

	token, err := generateToken(user.PublicID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email and password are required"})
		return
	}

	user, err := h.store.ByEmail(r.Context(), req.Email)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}

	token, err := generateToken(user.PublicID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: *user})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok || userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	user, err := h.store.ByPublicID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func generateToken(publicID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": publicID,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
