// Package stance stores audience support measurements taken before and after a
// debate and derives the display-only market snapshot from them.
package stance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"debatearena/models"

	"github.com/redis/go-redis/v9"
)

// Phase says when a stance was measured.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// ParsePhase accepts "pre" or "post".
func ParsePhase(raw string) (Phase, bool) {
	switch Phase(strings.ToLower(strings.TrimSpace(raw))) {
	case PhasePre:
		return PhasePre, true
	case PhasePost:
		return PhasePost, true
	}
	return "", false
}

// ErrInvalidStance wraps every rejection of the caller's input.
var ErrInvalidStance = errors.New("invalid stance")

func validate(debateID, voterID string, phase Phase, value int) error {
	if strings.TrimSpace(debateID) == "" || strings.TrimSpace(voterID) == "" {
		return fmt.Errorf("%w: debate id and voter id are required", ErrInvalidStance)
	}
	if phase != PhasePre && phase != PhasePost {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidStance, phase)
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("%w: value %d outside 0-100", ErrInvalidStance, value)
	}
	return nil
}

// RedisStore keeps one hash per debate and phase, keyed by voter.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func stanceKey(debateID string, phase Phase) string {
	return fmt.Sprintf("debate:%s:stance:%s", debateID, phase)
}

// RecordStance stores or overwrites a voter's measurement for a phase.
func (s *RedisStore) RecordStance(ctx context.Context, debateID, voterID string, phase Phase, value int) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("Redis client not available")
	}
	if err := validate(debateID, voterID, phase, value); err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, stanceKey(debateID, phase), voterID, value).Err(); err != nil {
		return fmt.Errorf("failed to record stance: %w", err)
	}
	return nil
}

// StancePairs implements debate.StanceSource.
func (s *RedisStore) StancePairs(ctx context.Context, debateID string) ([]models.StancePair, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("Redis client not available")
	}

	pipe := s.rdb.Pipeline()
	preCmd := pipe.HGetAll(ctx, stanceKey(debateID, PhasePre))
	postCmd := pipe.HGetAll(ctx, stanceKey(debateID, PhasePost))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load stances: %w", err)
	}

	pre, err := parseValues(preCmd.Val())
	if err != nil {
		return nil, err
	}
	post, err := parseValues(postCmd.Val())
	if err != nil {
		return nil, err
	}
	return joinPairs(pre, post), nil
}

func parseValues(raw map[string]string) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for voter, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid stance value for voter %s: %w", voter, err)
		}
		out[voter] = n
	}
	return out, nil
}

// joinPairs merges per-phase values into pairs sorted by voter.
func joinPairs(pre, post map[string]int) []models.StancePair {
	voters := make(map[string]struct{}, len(pre)+len(post))
	for v := range pre {
		voters[v] = struct{}{}
	}
	for v := range post {
		voters[v] = struct{}{}
	}

	pairs := make([]models.StancePair, 0, len(voters))
	for voter := range voters {
		pair := models.StancePair{VoterID: voter}
		if v, ok := pre[voter]; ok {
			pair.Pre = &v
		}
		if v, ok := post[voter]; ok {
			pair.Post = &v
		}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].VoterID < pairs[j].VoterID })
	return pairs
}

// MemoryStore is used when Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[Phase]map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[Phase]map[string]int)}
}

func (s *MemoryStore) RecordStance(_ context.Context, debateID, voterID string, phase Phase, value int) error {
	if err := validate(debateID, voterID, phase, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	phases, ok := s.values[debateID]
	if !ok {
		phases = map[Phase]map[string]int{PhasePre: {}, PhasePost: {}}
		s.values[debateID] = phases
	}
	phases[phase][voterID] = value
	return nil
}

func (s *MemoryStore) StancePairs(_ context.Context, debateID string) ([]models.StancePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	phases, ok := s.values[debateID]
	if !ok {
		return []models.StancePair{}, nil
	}
	return joinPairs(phases[PhasePre], phases[PhasePost]), nil
}
