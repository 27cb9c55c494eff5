package debate

import (
	"context"
	"time"

	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists debate aggregates. Update must run fn with at-most-one-writer
// semantics per debate: fn sees the latest committed state and its changes are
// committed only if fn returns nil and no other writer committed in between.
// Update may call fn more than once.
type Store interface {
	Create(ctx context.Context, agg models.DebateAggregate) error
	Get(ctx context.Context, debateID primitive.ObjectID) (models.DebateAggregate, error)
	Update(ctx context.Context, debateID primitive.ObjectID, fn func(agg *models.DebateAggregate) error) (models.DebateAggregate, error)
}

// StanceSource enumerates the audience's pre/post stance values for a debate.
type StanceSource interface {
	StancePairs(ctx context.Context, debateID string) ([]models.StancePair, error)
}

// MarketSource supplies the display-only price snapshot recorded at conclusion.
type MarketSource interface {
	Snapshot(ctx context.Context, debateID string) (models.MarketSnapshot, error)
}

// RoundAdvance describes a committed round transition.
type RoundAdvance struct {
	DebateID               string              `json:"debateId"`
	NewRound               int                 `json:"newRound"`
	NewTurn                models.Side         `json:"newTurn"`
	PreviousRoundCompleted int                 `json:"previousRoundCompleted"`
	Status                 models.DebateStatus `json:"status"`
}

// ArgumentSubmitted describes an accepted argument and the resulting turn.
type ArgumentSubmitted struct {
	DebateID    string      `json:"debateId"`
	ArgumentID  string      `json:"argumentId"`
	RoundNumber int         `json:"roundNumber"`
	Side        models.Side `json:"side"`
	NextTurn    models.Side `json:"nextTurn"`
}

// Broadcaster pushes lifecycle events to spectators. Calls are best-effort.
type Broadcaster interface {
	NotifyArgumentSubmitted(ctx context.Context, ev ArgumentSubmitted) error
	NotifyRoundAdvance(ctx context.Context, ev RoundAdvance) error
	NotifyDebateConcluded(ctx context.Context, debateID string, result models.DebateResult) error
}

// ReputationRecorder reacts to a concluded debate.
type ReputationRecorder interface {
	OnDebateConcluded(ctx context.Context, debate models.Debate, result models.DebateResult) error
}

// ProgressionTracker counts debates participated per user.
type ProgressionTracker interface {
	IncrementParticipation(ctx context.Context, userID string) (models.UserProgress, error)
}

// Clock is injected so tests can pin timestamps.
type Clock func() time.Time
