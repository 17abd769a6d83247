package puzzles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

type servedEntry struct {
	puzzleID string
	at       time.Time
}

// MemoryStore keeps the inventory in process memory. Used by tests and
// available as a storage driver for throwaway deployments.
type MemoryStore struct {
	mu       sync.Mutex
	puzzles  map[string]*models.Puzzle
	served   map[string][]servedEntry
	queue    []GenerationTask
	nextID   int64
	nextTask int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		puzzles: make(map[string]*models.Puzzle),
		served:  make(map[string][]servedEntry),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, rows []models.Puzzle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, p := range rows {
		if _, ok := m.puzzles[p.PuzzleID]; ok {
			continue
		}
		m.nextID++
		cp := p
		cp.ID = m.nextID
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
		m.puzzles[cp.PuzzleID] = &cp
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) ByPuzzleID(ctx context.Context, puzzleID string) (*models.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.puzzles[puzzleID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) CandidatesForUser(ctx context.Context, userID string, servedAfter time.Time, limit int) ([]models.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make(map[string]bool)
	for _, e := range m.served[userID] {
		if e.at.After(servedAfter) {
			recent[e.puzzleID] = true
		}
	}

	var out []models.Puzzle
	for _, p := range m.puzzles {
		if recent[p.PuzzleID] {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimesServed != out[j].TimesServed {
			return out[i].TimesServed < out[j].TimesServed
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkServed(ctx context.Context, userID, puzzleID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.served[userID] = append(m.served[userID], servedEntry{puzzleID: puzzleID, at: time.Now().UTC()})
	if p, ok := m.puzzles[puzzleID]; ok {
		p.TimesServed++
	}
	return nil
}

func (m *MemoryStore) RecordOutcome(ctx context.Context, puzzleID string, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.puzzles[puzzleID]; ok && correct {
		p.TimesCorrect++
	}
	return nil
}

func (m *MemoryStore) FreshCount(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, p := range m.puzzles {
		if p.Type == pt && p.Difficulty != nil && *p.Difficulty == label && p.TimesServed == 0 {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) QueueGeneration(ctx context.Context, pt models.PuzzleType, label models.DifficultyLabel, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.queue {
		t := &m.queue[i]
		if t.Status == "pending" && t.Type == pt && t.Difficulty == label {
			t.Count = count
			return nil
		}
	}
	m.nextTask++
	m.queue = append(m.queue, GenerationTask{
		ID:         m.nextTask,
		Type:       pt,
		Difficulty: label,
		Count:      count,
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) PendingGenerations(ctx context.Context, limit int) ([]GenerationTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []GenerationTask
	for _, t := range m.queue {
		if t.Status != "pending" {
			continue
		}
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateGenerationStatus(ctx context.Context, id int64, status string, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.queue {
		if m.queue[i].ID == id {
			m.queue[i].Status = status
			return nil
		}
	}
	return nil
}
