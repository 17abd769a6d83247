package engagement

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// MemoryStore holds engagement state in process memory. Used by tests and
// as the zero-setup development backend.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*models.UserEngagementState
	owned  map[string]map[models.PowerUpKind]int
	events []models.XPEvent
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*models.UserEngagementState),
		owned:  make(map[string]map[models.PowerUpKind]int),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*models.UserEngagementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	out := *st
	return &out, nil
}

func (s *MemoryStore) getOrCreateLocked(userID string) *models.UserEngagementState {
	if st, ok := s.states[userID]; ok {
		return st
	}
	now := time.Now().UTC()
	st := &models.UserEngagementState{UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.states[userID] = st
	return st
}

func (s *MemoryStore) UpdateStreak(ctx context.Context, userID string, current, longest int, lastActive time.Time, freezeActive bool, freezesOwned int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.CurrentStreak = current
	st.LongestStreak = longest
	st.LastActiveDate = &lastActive
	st.StreakFreezeActive = freezeActive
	st.StreakFreezesOwned = freezesOwned
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AddXP(ctx context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.TotalXP += int64(amount)
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SpendXP(ctx context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	if st.TotalXP-st.SpentXP < int64(amount) {
		return ErrInsufficientXP
	}
	st.SpentXP += int64(amount)
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) IncrementCounters(ctx context.Context, userID string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.PuzzlesSolvedTotal++
	if correct {
		st.PuzzlesCorrectTotal++
	}
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GrantPowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owned[userID] == nil {
		s.owned[userID] = make(map[models.PowerUpKind]int)
	}
	s.owned[userID][kind]++
	return nil
}

func (s *MemoryStore) ConsumePowerUp(ctx context.Context, userID string, kind models.PowerUpKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owned[userID][kind] <= 0 {
		return ErrPowerUpNotOwned
	}
	s.owned[userID][kind]--
	return nil
}

func (s *MemoryStore) PowerUpsOwned(ctx context.Context, userID string) (map[models.PowerUpKind]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[models.PowerUpKind]int)
	for kind, n := range s.owned[userID] {
		if n > 0 {
			out[kind] = n
		}
	}
	return out, nil
}

func (s *MemoryStore) LogEvent(ctx context.Context, userID, eventType string, xpAmount int, metadata map[string]interface{}) error {
	var meta string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.events = append(s.events, models.XPEvent{
		ID:        s.nextID,
		UserID:    userID,
		EventType: eventType,
		XPAmount:  xpAmount,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Events returns a snapshot of the XP event log for one user.
func (s *MemoryStore) Events(userID string) []models.XPEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.XPEvent
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
