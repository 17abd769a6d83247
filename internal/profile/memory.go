package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/puzzlemind/backend/internal/models"
)

// MemoryStore holds signatures in process memory. Used by tests and as the
// zero-setup development backend. Entries are stored marshaled so callers
// never share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, userID string) (*models.BehavioralSignature, error) {
	s.mu.RLock()
	raw, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var sig models.BehavioralSignature
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signature: %w", err)
	}
	return &sig, nil
}

func (s *MemoryStore) Save(ctx context.Context, sig *models.BehavioralSignature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}

	s.mu.Lock()
	s.data[sig.UserID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Size(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, raw := range s.data {
		total += int64(len(raw))
	}
	return total, nil
}
