package db

import (
	"context"
	"sync"

	"debatearena/internal/debate"
	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryEntry struct {
	mu  sync.Mutex
	agg models.DebateAggregate
}

// MemoryDebateStore keeps aggregates in process. Each debate has its own mutex,
// so updates to different debates never contend.
type MemoryDebateStore struct {
	mu      sync.RWMutex
	debates map[primitive.ObjectID]*memoryEntry
}

func NewMemoryDebateStore() *MemoryDebateStore {
	return &MemoryDebateStore{debates: make(map[primitive.ObjectID]*memoryEntry)}
}

func (s *MemoryDebateStore) Create(_ context.Context, agg models.DebateAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.debates[agg.Debate.ID]; exists {
		return debate.ErrDuplicateDebateID
	}
	s.debates[agg.Debate.ID] = &memoryEntry{agg: agg.Clone()}
	return nil
}

func (s *MemoryDebateStore) Get(_ context.Context, debateID primitive.ObjectID) (models.DebateAggregate, error) {
	entry, ok := s.entry(debateID)
	if !ok {
		return models.DebateAggregate{}, debate.ErrRecordNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.agg.Clone(), nil
}

// Update runs fn on a copy under the debate's lock and swaps the copy in only
// when fn succeeds.
func (s *MemoryDebateStore) Update(ctx context.Context, debateID primitive.ObjectID, fn func(agg *models.DebateAggregate) error) (models.DebateAggregate, error) {
	entry, ok := s.entry(debateID)
	if !ok {
		return models.DebateAggregate{}, debate.ErrRecordNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.DebateAggregate{}, err
	}

	working := entry.agg.Clone()
	if err := fn(&working); err != nil {
		return models.DebateAggregate{}, err
	}
	entry.agg = working
	return working.Clone(), nil
}

func (s *MemoryDebateStore) entry(id primitive.ObjectID) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.debates[id]
	return entry, ok
}
