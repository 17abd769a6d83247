package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/puzzlemind/backend/internal/metrics"
	"github.com/puzzlemind/backend/internal/models"
)

// Service wraps a Store with the engine's degraded-mode contract: Load
// always produces a usable signature, and a failed save holds the
// signature in memory so the next round trip retries persistence instead
// of losing the session.
type Service struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	dirty map[string]*models.BehavioralSignature
}

func NewService(store Store, logger *zap.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{
		store:   store,
		logger:  logger,
		timeout: timeout,
		dirty:   make(map[string]*models.BehavioralSignature),
	}
}

// Load returns the user's signature. A storage failure degrades to the
// held unsaved copy when one exists, otherwise to a fresh default; the
// request proceeds either way.
func (s *Service) Load(ctx context.Context, userID string, now time.Time) *models.BehavioralSignature {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sig, err := s.store.Load(ctx, userID)
	switch {
	case err == nil:
		if held := s.held(userID); held != nil && held.UpdatedAt.After(sig.UpdatedAt) {
			return held
		}
		return sig
	case errors.Is(err, ErrNotFound):
		if held := s.held(userID); held != nil {
			return held
		}
		return models.NewBehavioralSignature(userID, now)
	default:
		metrics.ProfileStorageFailures.Inc()
		s.logger.Error("profile load failed, serving degraded signature",
			zap.String("user_id", userID),
			zap.Error(err))
		if held := s.held(userID); held != nil {
			return held
		}
		return models.NewBehavioralSignature(userID, now)
	}
}

// Save persists the signature. On failure the signature is held in memory
// and retried via the next Save for that user; the caller is not blocked.
func (s *Service) Save(ctx context.Context, sig *models.BehavioralSignature) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Save(ctx, sig); err != nil {
		metrics.ProfileStorageFailures.Inc()
		s.logger.Error("profile save failed, holding signature for retry",
			zap.String("user_id", sig.UserID),
			zap.Error(err))
		s.mu.Lock()
		s.dirty[sig.UserID] = sig
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	delete(s.dirty, sig.UserID)
	s.mu.Unlock()
}

// StorageSize reports the store's footprint in bytes; failures read as
// zero rather than erroring a metrics request.
func (s *Service) StorageSize(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	size, err := s.store.Size(ctx)
	if err != nil {
		s.logger.Warn("storage size unavailable", zap.Error(err))
		return 0
	}
	return size
}

func (s *Service) held(userID string) *models.BehavioralSignature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[userID]
}
