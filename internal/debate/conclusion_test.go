package debate

import (
	"errors"
	"testing"
	"time"

	"debatearena/models"

	"github.com/google/go-cmp/cmp"
)

func pair(voter string, pre, post int) models.StancePair {
	return models.StancePair{VoterID: voter, Pre: &pre, Post: &post}
}

func TestComputeResult(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := DefaultPolicy()
	preOnly := 40

	tests := []struct {
		name        string
		pairs       []models.StancePair
		winner      models.Winner
		delta       float64
		mindChanges int
		complete    int
	}{
		{"no pairs is a tie", nil, models.WinnerTie, 0, 0, 0},
		{"support by average +7", []models.StancePair{pair("a", 40, 50), pair("b", 50, 54)}, models.WinnerSupport, 7, 1, 2},
		{"oppose by average -6", []models.StancePair{pair("a", 60, 54)}, models.WinnerOppose, -6, 0, 1},
		{"exactly +5 wins", []models.StancePair{pair("a", 50, 55)}, models.WinnerSupport, 5, 0, 1},
		{"exactly -5 wins", []models.StancePair{pair("a", 50, 45)}, models.WinnerOppose, -5, 0, 1},
		{"+4 is a tie", []models.StancePair{pair("a", 50, 54)}, models.WinnerTie, 4, 0, 1},
		{
			"incomplete pairs are ignored",
			[]models.StancePair{pair("a", 10, 30), {VoterID: "b", Pre: &preOnly}},
			models.WinnerSupport, 20, 1, 1,
		},
		{"mind change at exactly 10", []models.StancePair{pair("a", 80, 70), pair("b", 20, 30)}, models.WinnerTie, 0, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ComputeResult(tt.pairs, models.MarketSnapshot{}, now)
			want := models.DebateResult{
				Winner:             tt.winner,
				NetPersuasionDelta: tt.delta,
				MindChanges:        tt.mindChanges,
				CompletePairs:      tt.complete,
				ComputedAt:         now,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeResultWinnerUsesUnroundedDelta(t *testing.T) {
	// Average shift is 4.96, reported as 5.0, but the threshold is not reached.
	pairs := make([]models.StancePair, 0, 25)
	for i := 0; i < 24; i++ {
		pairs = append(pairs, pair(string(rune('a'+i)), 50, 55))
	}
	pairs = append(pairs, pair("z", 50, 54))

	got := DefaultPolicy().ComputeResult(pairs, models.MarketSnapshot{}, time.Now())
	if got.NetPersuasionDelta != 5.0 {
		t.Fatalf("Expected reported delta 5.0, got %v", got.NetPersuasionDelta)
	}
	if got.Winner != models.WinnerTie {
		t.Errorf("Expected tie for unrounded 4.96, got %s", got.Winner)
	}
}

func TestComputeResultIgnoresMarket(t *testing.T) {
	market := models.MarketSnapshot{SupportPrice: 0.99, OpposePrice: 0.01, Samples: 3}
	got := DefaultPolicy().ComputeResult([]models.StancePair{pair("a", 60, 50)}, market, time.Now())
	if got.Winner != models.WinnerOppose {
		t.Errorf("Expected oppose regardless of price, got %s", got.Winner)
	}
	if got.Market != market {
		t.Errorf("Expected market snapshot to be carried through, got %+v", got.Market)
	}
}

func TestConcludeDebateTwice(t *testing.T) {
	now := time.Now().UTC()
	d := &models.Debate{Status: models.DebateActive}
	first := models.DebateResult{Winner: models.WinnerSupport}

	if err := concludeDebate(d, first, now); err != nil {
		t.Fatalf("Expected first conclusion to succeed, got %v", err)
	}
	if d.Status != models.DebateConcluded || d.ConcludedAt == nil || d.Result == nil {
		t.Fatalf("Expected concluded debate with result, got %+v", d)
	}

	err := concludeDebate(d, models.DebateResult{Winner: models.WinnerOppose}, now.Add(time.Minute))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected conflict on second conclusion, got %v", err)
	}
	if d.Result.Winner != models.WinnerSupport || !d.ConcludedAt.Equal(now) {
		t.Errorf("Expected stored result to stay unchanged, got %+v at %v", d.Result, d.ConcludedAt)
	}
}
