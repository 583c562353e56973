package chatlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	turns     map[string][]Turn
	summaries map[string]UserSummary
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		turns:     make(map[string][]Turn),
		summaries: make(map[string]UserSummary),
	}
}

func (s *InMemoryStore) AppendTurns(_ context.Context, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Single lock hold: the pair lands together or not at all.
	for _, t := range turns {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		s.turns[t.UserID] = append(s.turns[t.UserID], t)
	}
	return nil
}

func (s *InMemoryStore) TurnsSince(_ context.Context, userID string, since time.Time) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]Turn, 0, len(arr))
	for _, t := range arr {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	// Appends may land out of timestamp order under concurrent writers.
	// Stable sort keeps insertion order as the tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) HasAnyTurn(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[userID]) > 0, nil
}

func (s *InMemoryStore) Summary(_ context.Context, userID string) (*UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[userID]
	if !ok {
		return nil, nil
	}
	return &sum, nil
}

func (s *InMemoryStore) UpsertSummary(_ context.Context, userID, summary string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[userID] = UserSummary{UserID: userID, Summary: summary, UpdatedAt: updatedAt}
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
