package debate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"debatearena/models"
)

func newSeatedAggregate(t *testing.T) models.DebateAggregate {
	t.Helper()
	agg := newAggregate("Cities should ban cars downtown", "alice", time.Now().UTC())
	oppose := "bob"
	agg.Debate.OpposeDebaterID = &oppose
	return agg
}

func tieResult() (models.DebateResult, error) {
	return models.DebateResult{Winner: models.WinnerTie}, nil
}

func TestNewAggregateBootstrapsRounds(t *testing.T) {
	agg := newAggregate("Resolution", "alice", time.Now())

	if agg.Debate.Status != models.DebateActive || agg.Debate.CurrentRound != 1 || agg.Debate.CurrentTurn != models.SideSupport {
		t.Fatalf("Unexpected initial debate state: %+v", agg.Debate)
	}
	want := []models.RoundType{models.RoundOpening, models.RoundRebuttal, models.RoundClosing}
	if len(agg.Rounds) != len(want) {
		t.Fatalf("Expected %d rounds, got %d", len(want), len(agg.Rounds))
	}
	for i, r := range agg.Rounds {
		if r.RoundNumber != i+1 || r.RoundType != want[i] || r.DebateID != agg.Debate.ID {
			t.Errorf("Round %d malformed: %+v", i+1, r)
		}
	}
}

func TestApplySubmissionFullDebate(t *testing.T) {
	p := DefaultPolicy()
	agg := newSeatedAggregate(t)
	now := time.Now().UTC()

	calls := 0
	result := func() (models.DebateResult, error) {
		calls++
		return models.DebateResult{Winner: models.WinnerSupport}, nil
	}

	order := []string{"alice", "bob", "alice", "bob", "alice", "bob"}
	for i, who := range order {
		tr, err := p.applySubmission(&agg, who, "argument", now, result)
		if err != nil {
			t.Fatalf("submission %d by %s failed: %v", i+1, who, err)
		}
		round := i/2 + 1
		if tr.Argument.RoundNumber != round {
			t.Errorf("submission %d: expected round %d, got %d", i+1, round, tr.Argument.RoundNumber)
		}

		secondInRound := i%2 == 1
		if secondInRound != (tr.RoundCompleted == round) {
			t.Errorf("submission %d: unexpected RoundCompleted %d", i+1, tr.RoundCompleted)
		}
		if !secondInRound && tr.Advance != nil {
			t.Errorf("submission %d: unexpected advance %+v", i+1, tr.Advance)
		}
		if secondInRound && round < models.TotalRounds {
			if agg.Debate.CurrentRound != round+1 || agg.Debate.CurrentTurn != models.SideSupport {
				t.Errorf("submission %d: expected round %d support turn, got round %d %s turn",
					i+1, round+1, agg.Debate.CurrentRound, agg.Debate.CurrentTurn)
			}
		}
	}

	if calls != 1 {
		t.Errorf("Expected result to be computed once, got %d", calls)
	}
	if agg.Debate.Status != models.DebateConcluded || agg.Debate.Result == nil || agg.Debate.Result.Winner != models.WinnerSupport {
		t.Fatalf("Expected concluded debate won by support, got %+v", agg.Debate)
	}
	if agg.Debate.CurrentRound != 3 {
		t.Errorf("Expected current round to stay at 3, got %d", agg.Debate.CurrentRound)
	}
	if len(agg.Arguments) != 6 {
		t.Errorf("Expected 6 arguments, got %d", len(agg.Arguments))
	}
	for _, r := range agg.Rounds {
		if !r.BothFilled() || r.CompletedAt == nil {
			t.Errorf("Round %d not completed: %+v", r.RoundNumber, r)
		}
	}
}

func TestApplySubmissionRejectsAfterConclusion(t *testing.T) {
	p := DefaultPolicy()
	agg := newSeatedAggregate(t)
	for _, who := range []string{"alice", "bob", "alice", "bob", "alice", "bob"} {
		if _, err := p.applySubmission(&agg, who, "argument", time.Now(), tieResult); err != nil {
			t.Fatalf("setup submission failed: %v", err)
		}
	}

	_, err := p.applySubmission(&agg, "alice", "one more", time.Now(), tieResult)
	if !errors.Is(err, ErrAuthorization) || err.Error() != reasonInactive {
		t.Fatalf("Expected %q, got %v", reasonInactive, err)
	}
}

func TestApplySubmissionValidatesAgainstCurrentRoundType(t *testing.T) {
	p := DefaultPolicy()
	agg := newSeatedAggregate(t)
	// Move to rebuttal.
	for _, who := range []string{"alice", "bob"} {
		if _, err := p.applySubmission(&agg, who, "opening", time.Now(), tieResult); err != nil {
			t.Fatalf("setup submission failed: %v", err)
		}
	}

	_, err := p.applySubmission(&agg, "alice", strings.Repeat("x", 1501), time.Now(), tieResult)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Rebuttal argument exceeds the 1500 character limit by 1 characters.") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if agg.Debate.CurrentTurn != models.SideSupport || len(agg.Arguments) != 2 {
		t.Errorf("Rejected submission must not change state, got turn %s and %d arguments", agg.Debate.CurrentTurn, len(agg.Arguments))
	}
}

func TestApplySubmissionFilledSlot(t *testing.T) {
	p := DefaultPolicy()
	agg := newSeatedAggregate(t)
	round, _ := agg.Round(1)
	round.Fill(models.SideSupport, agg.Debate.ID)

	_, err := p.applySubmission(&agg, "alice", "argument", time.Now(), tieResult)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected conflict for filled slot, got %v", err)
	}
}

func TestApplySubmissionCorruptRound(t *testing.T) {
	p := DefaultPolicy()

	missing := newSeatedAggregate(t)
	missing.Rounds = missing.Rounds[1:]
	if _, err := p.applySubmission(&missing, "alice", "argument", time.Now(), tieResult); !errors.Is(err, ErrState) {
		t.Errorf("Expected state error for missing round, got %v", err)
	}

	mistyped := newSeatedAggregate(t)
	mistyped.Rounds[0].RoundType = models.RoundClosing
	if _, err := p.applySubmission(&mistyped, "alice", "argument", time.Now(), tieResult); !errors.Is(err, ErrState) {
		t.Errorf("Expected state error for mistyped round, got %v", err)
	}
}

func TestApplySubmissionResultFailure(t *testing.T) {
	p := DefaultPolicy()
	agg := newSeatedAggregate(t)
	for _, who := range []string{"alice", "bob", "alice", "bob", "alice"} {
		if _, err := p.applySubmission(&agg, who, "argument", time.Now(), tieResult); err != nil {
			t.Fatalf("setup submission failed: %v", err)
		}
	}

	boom := errors.New("stance store down")
	_, err := p.applySubmission(&agg, "bob", "closing", time.Now(), func() (models.DebateResult, error) {
		return models.DebateResult{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected result error to propagate, got %v", err)
	}
}
