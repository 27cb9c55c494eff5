package debate

import (
	"time"

	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transition is what a single accepted submission did to the aggregate.
type Transition struct {
	Argument       models.Argument
	Side           models.Side
	RoundCompleted int
	Advance        *RoundAdvance
	Concluded      bool
}

// resultFunc produces the outcome when the final round completes. It is only
// called inside the atomic update.
type resultFunc func() (models.DebateResult, error)

// applySubmission is the round sequencer. It runs the turn gate and content
// validator against agg, records the argument, flips the turn and, when the
// round's second slot is filled, advances the round or concludes the debate.
// On error agg must be discarded by the caller.
func (p Policy) applySubmission(agg *models.DebateAggregate, submitterID, content string, now time.Time, result resultFunc) (Transition, error) {
	d := &agg.Debate

	side, err := CanSubmit(*d, submitterID)
	if err != nil {
		return Transition{}, err
	}

	round, ok := agg.Round(d.CurrentRound)
	if !ok {
		return Transition{}, stateError("round %d missing from debate %s", d.CurrentRound, d.ID.Hex())
	}
	if expected, _ := models.RoundTypeFor(round.RoundNumber); round.RoundType != expected {
		return Transition{}, stateError("round %d has type %q, expected %q", round.RoundNumber, round.RoundType, expected)
	}

	if fb, ok := p.ValidateContent(round.RoundType, content); !ok {
		return Transition{}, contentError(fb)
	}

	if round.Slot(side) != nil {
		return Transition{}, conflictError("round already complete for this side")
	}

	arg := models.Argument{
		ID:          primitive.NewObjectID(),
		DebateID:    d.ID,
		RoundID:     round.ID,
		RoundNumber: round.RoundNumber,
		DebaterID:   submitterID,
		Side:        side,
		Content:     content,
		CreatedAt:   now,
	}
	agg.Arguments = append(agg.Arguments, arg)
	round.Fill(side, arg.ID)
	d.CurrentTurn = side.Opposite()

	tr := Transition{Argument: arg, Side: side}
	if !round.BothFilled() {
		return tr, nil
	}

	completedAt := now
	round.CompletedAt = &completedAt
	tr.RoundCompleted = round.RoundNumber

	if d.CurrentRound < models.TotalRounds {
		d.CurrentRound++
		d.CurrentTurn = models.SideSupport
		tr.Advance = &RoundAdvance{
			DebateID:               d.ID.Hex(),
			NewRound:               d.CurrentRound,
			NewTurn:                d.CurrentTurn,
			PreviousRoundCompleted: round.RoundNumber,
			Status:                 d.Status,
		}
		return tr, nil
	}

	res, err := result()
	if err != nil {
		return Transition{}, err
	}
	if err := concludeDebate(d, res, now); err != nil {
		return Transition{}, err
	}
	tr.Concluded = true
	tr.Advance = &RoundAdvance{
		DebateID:               d.ID.Hex(),
		NewRound:               d.CurrentRound,
		NewTurn:                d.CurrentTurn,
		PreviousRoundCompleted: round.RoundNumber,
		Status:                 d.Status,
	}
	return tr, nil
}

// newAggregate builds an active debate with its three empty rounds.
func newAggregate(resolution, creatorID string, now time.Time) models.DebateAggregate {
	id := primitive.NewObjectID()
	agg := models.DebateAggregate{
		Debate: models.Debate{
			ID:               id,
			Resolution:       resolution,
			Status:           models.DebateActive,
			CurrentRound:     1,
			CurrentTurn:      models.SideSupport,
			SupportDebaterID: creatorID,
			CreatedAt:        now,
		},
		Rounds:    make([]models.Round, 0, models.TotalRounds),
		Arguments: []models.Argument{},
	}
	for n := 1; n <= models.TotalRounds; n++ {
		rt, _ := models.RoundTypeFor(n)
		agg.Rounds = append(agg.Rounds, models.Round{
			ID:          primitive.NewObjectID(),
			DebateID:    id,
			RoundNumber: n,
			RoundType:   rt,
		})
	}
	return agg
}
