package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserStore keeps rating and progression state in the users collection.
type MongoUserStore struct {
	coll    *mongo.Collection
	history *mongo.Collection
}

func NewMongoUserStore(database *mongo.Database) *MongoUserStore {
	return &MongoUserStore{
		coll:    database.Collection(usersCollection),
		history: database.Collection(ratingHistoryCollection),
	}
}

func (s *MongoUserStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, debate.ErrRecordNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// SaveRating upserts the rating fields of a user.
func (s *MongoUserStore) SaveRating(ctx context.Context, user models.User) error {
	update := bson.M{
		"$set": bson.M{
			"rating":           user.Rating,
			"rd":               user.RD,
			"volatility":       user.Volatility,
			"lastRatingUpdate": user.LastRatingUpdate,
			"updatedAt":        time.Now().UTC(),
		},
	}
	_, err := s.coll.UpdateByID(ctx, user.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

// IncrementParticipation atomically bumps the counter and returns the new state.
func (s *MongoUserStore) IncrementParticipation(ctx context.Context, userID string) (models.User, error) {
	update := bson.M{
		"$inc": bson.M{"debatesParticipated": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user models.User
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		return models.User{}, fmt.Errorf("failed to increment participation: %w", err)
	}
	return user, nil
}

// MarkGraduated sets the graduation flag once. There is no operation that
// clears it.
func (s *MongoUserStore) MarkGraduated(ctx context.Context, userID string, at time.Time) error {
	filter := bson.M{"_id": userID, "graduated": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{"graduated": true, "graduatedAt": at, "updatedAt": at}}
	if _, err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark graduated: %w", err)
	}
	return nil
}

// AppendRatingHistory stores rating changes.
func (s *MongoUserStore) AppendRatingHistory(ctx context.Context, entries ...models.RatingHistory) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		if e.ID.IsZero() {
			e.ID = primitive.NewObjectID()
		}
		docs[i] = e
	}
	if _, err := s.history.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to append rating history: %w", err)
	}
	return nil
}

// RatingHistory returns a user's most recent rating changes, newest first.
func (s *MongoUserStore) RatingHistory(ctx context.Context, userID string, limit int) ([]models.RatingHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.history.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rating history: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.RatingHistory{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode rating history: %w", err)
	}
	return entries, nil
}

// TopRated returns rated users by rating descending, then by RD ascending
// (more certain ratings first).
func (s *MongoUserStore) TopRated(ctx context.Context, limit int) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "rating", Value: -1},
		{Key: "rd", Value: 1},
	}).SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{"rd": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return users, nil
}

// MemoryUserStore is the in-process counterpart of MongoUserStore.
type MemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	history []models.RatingHistory
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, debate.ErrRecordNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) SaveRating(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.users[user.ID]
	current.ID = user.ID
	current.Rating = user.Rating
	current.RD = user.RD
	current.Volatility = user.Volatility
	current.LastRatingUpdate = user.LastRatingUpdate
	current.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = current
	return nil
}

func (s *MemoryUserStore) IncrementParticipation(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	user.ID = userID
	user.DebatesParticipated++
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return user, nil
}

func (s *MemoryUserStore) MarkGraduated(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	if user.Graduated {
		return nil
	}
	user.ID = userID
	user.Graduated = true
	user.GraduatedAt = &at
	s.users[userID] = user
	return nil
}

func (s *MemoryUserStore) AppendRatingHistory(_ context.Context, entries ...models.RatingHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID.IsZero() {
			e.ID = primitive.NewObjectID()
		}
		s.history = append(s.history, e)
	}
	return nil
}

func (s *MemoryUserStore) RatingHistory(_ context.Context, userID string, limit int) ([]models.RatingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RatingHistory{}
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if s.history[i].UserID == userID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

func (s *MemoryUserStore) TopRated(_ context.Context, limit int) ([]models.User, error) {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.RD > 0 {
			users = append(users, u)
		}
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Rating != users[j].Rating {
			return users[i].Rating > users[j].Rating
		}
		if users[i].RD != users[j].RD {
			return users[i].RD < users[j].RD
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
