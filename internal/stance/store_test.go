package stance

import (
	"context"
	"errors"
	"testing"

	"debatearena/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

type recorder interface {
	RecordStance(ctx context.Context, debateID, voterID string, phase Phase, value int) error
	StancePairs(ctx context.Context, debateID string) ([]models.StancePair, error)
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb)
}

func intp(v int) *int { return &v }

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) recorder{
		"redis":  func(t *testing.T) recorder { return newRedisStore(t) },
		"memory": func(t *testing.T) recorder { return NewMemoryStore() },
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk(t)

			steps := []struct {
				voter string
				phase Phase
				value int
			}{
				{"v2", PhasePre, 30},
				{"v1", PhasePre, 50},
				{"v1", PhasePost, 70},
				{"v3", PhasePost, 90},
				{"v2", PhasePre, 35}, // overwrite
			}
			for _, st := range steps {
				if err := s.RecordStance(ctx, "d1", st.voter, st.phase, st.value); err != nil {
					t.Fatalf("RecordStance(%s, %s): %v", st.voter, st.phase, err)
				}
			}
			if err := s.RecordStance(ctx, "d2", "v1", PhasePre, 10); err != nil {
				t.Fatalf("RecordStance other debate: %v", err)
			}

			got, err := s.StancePairs(ctx, "d1")
			if err != nil {
				t.Fatalf("StancePairs: %v", err)
			}
			want := []models.StancePair{
				{VoterID: "v1", Pre: intp(50), Post: intp(70)},
				{VoterID: "v2", Pre: intp(35)},
				{VoterID: "v3", Post: intp(90)},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("pairs mismatch (-want +got):\n%s", diff)
			}

			empty, err := s.StancePairs(ctx, "unknown")
			if err != nil {
				t.Fatalf("StancePairs unknown: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("Expected no pairs, got %v", empty)
			}
		})
	}
}

func TestRecordStanceValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	bad := []struct {
		name   string
		debate string
		voter  string
		phase  Phase
		value  int
	}{
		{"below range", "d", "v", PhasePre, -1},
		{"above range", "d", "v", PhasePost, 101},
		{"unknown phase", "d", "v", Phase("during"), 50},
		{"missing voter", "d", "", PhasePre, 50},
		{"missing debate", " ", "v", PhasePre, 50},
	}
	for _, tt := range bad {
		if err := s.RecordStance(ctx, tt.debate, tt.voter, tt.phase, tt.value); !errors.Is(err, ErrInvalidStance) {
			t.Errorf("%s: expected ErrInvalidStance, got %v", tt.name, err)
		}
	}

	for _, v := range []int{0, 100} {
		if err := s.RecordStance(ctx, "d", "v", PhasePre, v); err != nil {
			t.Errorf("Expected %d to be accepted, got %v", v, err)
		}
	}
}

func TestParsePhase(t *testing.T) {
	if p, ok := ParsePhase(" POST "); !ok || p != PhasePost {
		t.Errorf("Expected post, got %q %v", p, ok)
	}
	if _, ok := ParsePhase("mid"); ok {
		t.Error("Expected mid to be rejected")
	}
}

func TestRedisStoreOutageIsNotInvalidStance(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	err := NewRedisStore(rdb).RecordStance(context.Background(), "d1", "v1", PhasePre, 40)
	if err == nil {
		t.Fatal("Expected an error with Redis down")
	}
	if errors.Is(err, ErrInvalidStance) {
		t.Errorf("Expected an infrastructure error, got %v", err)
	}
}
