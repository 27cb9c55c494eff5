package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"
)

// DefaultGraduationThreshold is the number of debates after which a user
// leaves the sandbox.
const DefaultGraduationThreshold = 5

// ProgressStore persists participation counters and the graduation flag.
type ProgressStore interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	IncrementParticipation(ctx context.Context, userID string) (models.User, error)
	MarkGraduated(ctx context.Context, userID string, at time.Time) error
}

// ProgressionService counts debates per user and graduates them once the
// count reaches the threshold. Graduation is permanent.
type ProgressionService struct {
	Store     ProgressStore
	Threshold int
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewProgressionService(store ProgressStore, threshold int, logger *slog.Logger) *ProgressionService {
	if threshold <= 0 {
		threshold = DefaultGraduationThreshold
	}
	return &ProgressionService{
		Store:     store,
		Threshold: threshold,
		Logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// IncrementParticipation implements debate.ProgressionTracker.
func (s *ProgressionService) IncrementParticipation(ctx context.Context, userID string) (models.UserProgress, error) {
	user, err := s.Store.IncrementParticipation(ctx, userID)
	if err != nil {
		return models.UserProgress{}, err
	}

	if !user.Graduated && user.DebatesParticipated >= s.Threshold {
		if err := s.Store.MarkGraduated(ctx, userID, s.Now()); err != nil {
			return models.UserProgress{}, err
		}
		user.Graduated = true
		resolveLogger(s.Logger).Info("user graduated",
			"event", "user_graduated",
			"user_id", userID,
			"debates_participated", user.DebatesParticipated,
		)
	}
	return user.Progress(), nil
}

// Progress returns the current counters; unknown users have none.
func (s *ProgressionService) Progress(ctx context.Context, userID string) (models.UserProgress, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, debate.ErrRecordNotFound) {
		return models.UserProgress{UserID: userID}, nil
	}
	if err != nil {
		return models.UserProgress{}, err
	}
	return user.Progress(), nil
}
