package debate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const defaultNotifyTimeout = 10 * time.Second

// Dependencies wires the controller to its collaborators. Only Store is
// required; missing collaborators are skipped.
type Dependencies struct {
	Store         Store
	Stances       StanceSource
	Market        MarketSource
	Broadcaster   Broadcaster
	Reputation    []ReputationRecorder
	Progression   ProgressionTracker
	Policy        Policy
	Logger        *slog.Logger
	Clock         Clock
	NotifyTimeout time.Duration
}

// Controller runs the debate lifecycle: creation, joining, turn-ordered
// submission, round advancement and conclusion.
type Controller struct {
	store         Store
	stances       StanceSource
	market        MarketSource
	broadcaster   Broadcaster
	reputation    []ReputationRecorder
	progression   ProgressionTracker
	policy        Policy
	logger        *slog.Logger
	now           Clock
	notifyTimeout time.Duration

	pending sync.WaitGroup
}

// SubmitResult reports the committed state after an accepted argument.
type SubmitResult struct {
	Argument       models.Argument `json:"argument"`
	Debate         models.Debate   `json:"debate"`
	RoundCompleted bool            `json:"roundCompleted"`
	Concluded      bool            `json:"concluded"`
}

func NewController(deps Dependencies) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("debate store is required")
	}
	c := &Controller{
		store:         deps.Store,
		stances:       deps.Stances,
		market:        deps.Market,
		broadcaster:   deps.Broadcaster,
		reputation:    deps.Reputation,
		progression:   deps.Progression,
		policy:        deps.Policy.withDefaults(),
		logger:        resolveLogger(deps.Logger),
		now:           deps.Clock,
		notifyTimeout: deps.NotifyTimeout,
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.notifyTimeout <= 0 {
		c.notifyTimeout = defaultNotifyTimeout
	}
	return c, nil
}

// Policy returns the effective limits.
func (c *Controller) Policy() Policy {
	return c.policy
}

// CreateDebate opens a debate with the creator on the support side and the
// three rounds bootstrapped in order.
func (c *Controller) CreateDebate(ctx context.Context, resolution, creatorID string) (models.DebateAggregate, error) {
	resolution = strings.TrimSpace(resolution)
	creatorID = strings.TrimSpace(creatorID)

	if resolution == "" {
		return models.DebateAggregate{}, validationError("resolution is required")
	}
	if n := utf8.RuneCountInString(resolution); n > c.policy.MaxResolutionLength {
		return models.DebateAggregate{}, validationError("resolution must be at most %d characters (got %d)", c.policy.MaxResolutionLength, n)
	}
	if creatorID == "" {
		return models.DebateAggregate{}, validationError("creator id is required")
	}

	agg := newAggregate(resolution, creatorID, c.now())
	if err := c.store.Create(ctx, agg); err != nil {
		return models.DebateAggregate{}, c.storeError(err, agg.Debate.ID.Hex())
	}

	c.logger.Info("debate created",
		"event", "debate_created",
		"debate_id", agg.Debate.ID.Hex(),
		"support_debater_id", creatorID,
	)
	return agg, nil
}

// JoinAsOppose seats userID on the oppose side.
func (c *Controller) JoinAsOppose(ctx context.Context, debateID, userID string) (models.Debate, error) {
	id, err := parseDebateID(debateID)
	if err != nil {
		return models.Debate{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Debate{}, validationError("user id is required")
	}

	agg, err := c.store.Update(ctx, id, func(agg *models.DebateAggregate) error {
		d := &agg.Debate
		if d.SupportDebaterID == userID {
			return conflictError("cannot join both sides of a debate")
		}
		if d.OpposeDebaterID != nil {
			return conflictError("oppose side already taken")
		}
		if d.Status != models.DebateActive {
			return conflictError("debate is no longer active")
		}
		seat := userID
		d.OpposeDebaterID = &seat
		return nil
	})
	if err != nil {
		return models.Debate{}, c.storeError(err, debateID)
	}

	c.logger.Info("oppose debater joined",
		"event", "debate_joined",
		"debate_id", debateID,
		"oppose_debater_id", userID,
	)
	return agg.Debate, nil
}

// SubmitArgument files content for the debater whose turn it is. Gate,
// validation, recording and any round transition commit as one atomic update;
// spectators and downstream collaborators are notified afterwards.
func (c *Controller) SubmitArgument(ctx context.Context, debateID, debaterID, content string) (SubmitResult, error) {
	id, err := parseDebateID(debateID)
	if err != nil {
		return SubmitResult{}, err
	}
	debaterID = strings.TrimSpace(debaterID)

	var tr Transition
	agg, err := c.store.Update(ctx, id, func(agg *models.DebateAggregate) error {
		now := c.now()
		var applyErr error
		tr, applyErr = c.policy.applySubmission(agg, debaterID, content, now, func() (models.DebateResult, error) {
			return c.computeResult(ctx, debateID, now)
		})
		return applyErr
	})
	if err != nil {
		return SubmitResult{}, c.storeError(err, debateID)
	}

	c.logger.Info("argument submitted",
		"event", "argument_submitted",
		"debate_id", debateID,
		"round", tr.Argument.RoundNumber,
		"side", string(tr.Side),
		"next_turn", string(agg.Debate.CurrentTurn),
	)
	if tr.Advance != nil && !tr.Concluded {
		c.logger.Info("round advanced",
			"event", "round_advanced",
			"debate_id", debateID,
			"completed_round", tr.RoundCompleted,
			"new_round", tr.Advance.NewRound,
		)
	}
	if tr.Concluded {
		c.logger.Info("debate concluded",
			"event", "debate_concluded",
			"debate_id", debateID,
			"winner", string(agg.Debate.Result.Winner),
			"net_persuasion_delta", agg.Debate.Result.NetPersuasionDelta,
			"complete_pairs", agg.Debate.Result.CompletePairs,
		)
	}

	c.dispatch(ctx, debateID, c.notificationsFor(agg.Debate, tr))

	return SubmitResult{
		Argument:       tr.Argument,
		Debate:         agg.Debate,
		RoundCompleted: tr.RoundCompleted > 0,
		Concluded:      tr.Concluded,
	}, nil
}

func (c *Controller) GetDebate(ctx context.Context, debateID string) (models.Debate, error) {
	agg, err := c.load(ctx, debateID)
	if err != nil {
		return models.Debate{}, err
	}
	return agg.Debate, nil
}

// GetRounds returns the debate's rounds in round-number order.
func (c *Controller) GetRounds(ctx context.Context, debateID string) ([]models.Round, error) {
	agg, err := c.load(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return agg.Rounds, nil
}

// GetArguments returns the debate's arguments in submission order.
func (c *Controller) GetArguments(ctx context.Context, debateID string) ([]models.Argument, error) {
	agg, err := c.load(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return agg.Arguments, nil
}

// Wait blocks until every in-flight notification has finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

func (c *Controller) load(ctx context.Context, debateID string) (models.DebateAggregate, error) {
	id, err := parseDebateID(debateID)
	if err != nil {
		return models.DebateAggregate{}, err
	}
	agg, err := c.store.Get(ctx, id)
	if err != nil {
		return models.DebateAggregate{}, c.storeError(err, debateID)
	}
	return agg, nil
}

func (c *Controller) computeResult(ctx context.Context, debateID string, now time.Time) (models.DebateResult, error) {
	var pairs []models.StancePair
	if c.stances != nil {
		var err error
		pairs, err = c.stances.StancePairs(ctx, debateID)
		if err != nil {
			return models.DebateResult{}, fmt.Errorf("load stance pairs for %s: %w", debateID, err)
		}
	}

	snapshot := models.MarketSnapshot{CapturedAt: now}
	if c.market != nil {
		s, err := c.market.Snapshot(ctx, debateID)
		if err != nil {
			c.logger.Warn("market snapshot unavailable",
				"event", "market_snapshot_failed",
				"debate_id", debateID,
				"error", err,
			)
		} else {
			snapshot = s
		}
	}

	return c.policy.ComputeResult(pairs, snapshot, now), nil
}

type notification struct {
	name string
	call func(ctx context.Context) error
}

func (c *Controller) notificationsFor(d models.Debate, tr Transition) []notification {
	debateID := d.ID.Hex()
	var out []notification

	if c.broadcaster != nil {
		submitted := ArgumentSubmitted{
			DebateID:    debateID,
			ArgumentID:  tr.Argument.ID.Hex(),
			RoundNumber: tr.Argument.RoundNumber,
			Side:        tr.Side,
			NextTurn:    d.CurrentTurn,
		}
		out = append(out, notification{"broadcast_argument", func(ctx context.Context) error {
			return c.broadcaster.NotifyArgumentSubmitted(ctx, submitted)
		}})
		if tr.Advance != nil {
			advance := *tr.Advance
			out = append(out, notification{"broadcast_round_advance", func(ctx context.Context) error {
				return c.broadcaster.NotifyRoundAdvance(ctx, advance)
			}})
		}
	}

	if !tr.Concluded || d.Result == nil {
		return out
	}
	result := *d.Result

	if c.broadcaster != nil {
		out = append(out, notification{"broadcast_conclusion", func(ctx context.Context) error {
			return c.broadcaster.NotifyDebateConcluded(ctx, debateID, result)
		}})
	}
	for _, rep := range c.reputation {
		out = append(out, notification{"reputation", func(ctx context.Context) error {
			return rep.OnDebateConcluded(ctx, d, result)
		}})
	}
	if c.progression != nil {
		for _, userID := range []string{d.SupportDebaterID, d.DebaterFor(models.SideOppose)} {
			if userID == "" {
				continue
			}
			out = append(out, notification{"progression", func(ctx context.Context) error {
				_, err := c.progression.IncrementParticipation(ctx, userID)
				return err
			}})
		}
	}
	return out
}

// dispatch runs notifications in the background after the state change has
// committed. Failures are logged and never reach the caller.
func (c *Controller) dispatch(ctx context.Context, debateID string, calls []notification) {
	if len(calls) == 0 {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
		defer cancel()

		var g errgroup.Group
		for _, n := range calls {
			g.Go(func() error {
				if err := n.call(nctx); err != nil {
					c.logger.Warn("notification failed",
						"event", "notification_failed",
						"debate_id", debateID,
						"collaborator", n.name,
						"error", err,
					)
					return fmt.Errorf("%s: %w", n.name, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			c.logger.Debug("notification fan-out incomplete", "debate_id", debateID, "error", err)
		}
	}()
}

func (c *Controller) storeError(err error, debateID string) error {
	var de *Error
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, ErrRecordNotFound):
		return notFoundError("debate %s not found", debateID)
	case errors.Is(err, ErrConcurrentUpdate):
		return conflictError("debate was modified concurrently, retry the request")
	case errors.Is(err, ErrDuplicateDebateID):
		return conflictError("debate already exists")
	default:
		return fmt.Errorf("debate %s: %w", debateID, err)
	}
}

func parseDebateID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, notFoundError("debate %s not found", raw)
	}
	return id, nil
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
