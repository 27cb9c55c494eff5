package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"
	"debatearena/rating"
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
)

// RatingStore loads and saves debater ratings.
type RatingStore interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	SaveRating(ctx context.Context, user models.User) error
	AppendRatingHistory(ctx context.Context, entries ...models.RatingHistory) error
	RatingHistory(ctx context.Context, userID string, limit int) ([]models.RatingHistory, error)
	TopRated(ctx context.Context, limit int) ([]models.User, error)
}

// RatingService is the reputation collaborator: it rates the support debater
// against the oppose debater whenever a debate concludes.
type RatingService struct {
	Store  RatingStore
	System *rating.Glicko2
	Logger *slog.Logger
	Now    func() time.Time
}

func NewRatingService(store RatingStore, logger *slog.Logger) *RatingService {
	return &RatingService{
		Store:  store,
		System: rating.New(rating.DefaultConfig()),
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// OnDebateConcluded implements debate.ReputationRecorder.
func (s *RatingService) OnDebateConcluded(ctx context.Context, d models.Debate, result models.DebateResult) error {
	supportID := d.DebaterFor(models.SideSupport)
	opposeID := d.DebaterFor(models.SideOppose)
	if supportID == "" || opposeID == "" {
		return fmt.Errorf("debate %s has an empty seat", d.ID.Hex())
	}

	at := s.Now()
	if d.ConcludedAt != nil {
		at = *d.ConcludedAt
	}

	support, err := s.loadPlayer(ctx, supportID, at)
	if err != nil {
		return err
	}
	oppose, err := s.loadPlayer(ctx, opposeID, at)
	if err != nil {
		return err
	}

	newSupport, newOppose := s.System.Match(support, oppose, scoreFor(result.Winner), at)
	newSupport = s.System.Sanitize(newSupport)
	newOppose = s.System.Sanitize(newOppose)

	if err := s.Store.SaveRating(ctx, userFromPlayer(supportID, newSupport)); err != nil {
		return err
	}
	if err := s.Store.SaveRating(ctx, userFromPlayer(opposeID, newOppose)); err != nil {
		return err
	}

	err = s.Store.AppendRatingHistory(ctx,
		models.RatingHistory{
			UserID: supportID, DebateID: d.ID, Side: models.SideSupport, Outcome: result.Winner,
			OldRating: support.Rating, NewRating: newSupport.Rating, Timestamp: at,
		},
		models.RatingHistory{
			UserID: opposeID, DebateID: d.ID, Side: models.SideOppose, Outcome: result.Winner,
			OldRating: oppose.Rating, NewRating: newOppose.Rating, Timestamp: at,
		},
	)
	if err != nil {
		return err
	}

	resolveLogger(s.Logger).Info("ratings updated",
		"event", "ratings_updated",
		"debate_id", d.ID.Hex(),
		"winner", string(result.Winner),
		"support_rating_change", newSupport.Rating-support.Rating,
		"oppose_rating_change", newOppose.Rating-oppose.Rating,
	)
	return nil
}

// Leaderboard ranks rated debaters. limit is clamped to 1..100; zero means 20.
func (s *RatingService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	users, err := s.Store.TopRated(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = models.LeaderboardEntry{
			Rank:                i + 1,
			UserID:              u.ID,
			Rating:              math.Round(u.Rating),
			RD:                  math.Round(u.RD),
			DebatesParticipated: u.DebatesParticipated,
			Graduated:           u.Graduated,
		}
	}
	return entries, nil
}

// History returns a user's latest rating changes, newest first.
func (s *RatingService) History(ctx context.Context, userID string, limit int) ([]models.RatingHistory, error) {
	return s.Store.RatingHistory(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLeaderboardSize
	case limit > maxLeaderboardSize:
		return maxLeaderboardSize
	}
	return limit
}

func (s *RatingService) loadPlayer(ctx context.Context, userID string, at time.Time) (rating.Player, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, debate.ErrRecordNotFound) || (err == nil && user.RD == 0) {
		return s.System.NewPlayer(at), nil
	}
	if err != nil {
		return rating.Player{}, err
	}
	return s.System.Sanitize(rating.Player{
		Rating:     user.Rating,
		RD:         user.RD,
		Volatility: user.Volatility,
		LastUpdate: user.LastRatingUpdate,
	}), nil
}

func scoreFor(w models.Winner) float64 {
	switch w {
	case models.WinnerSupport:
		return 1
	case models.WinnerOppose:
		return 0
	default:
		return 0.5
	}
}

func userFromPlayer(userID string, p rating.Player) models.User {
	return models.User{
		ID:               userID,
		Rating:           p.Rating,
		RD:               p.RD,
		Volatility:       p.Volatility,
		LastRatingUpdate: p.LastUpdate,
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
