package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMaxAttempts = 5

// debateDocument stores a whole aggregate in one document so that a single
// conditional replace commits a submission atomically.
type debateDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Version   int64              `bson:"version"`
	Debate    models.Debate      `bson:"debate"`
	Rounds    []models.Round     `bson:"rounds"`
	Arguments []models.Argument  `bson:"arguments"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func newDebateDocument(agg models.DebateAggregate, version int64) debateDocument {
	args := agg.Arguments
	if args == nil {
		args = []models.Argument{}
	}
	return debateDocument{
		ID:        agg.Debate.ID,
		Version:   version,
		Debate:    agg.Debate,
		Rounds:    agg.Rounds,
		Arguments: args,
		UpdatedAt: time.Now().UTC(),
	}
}

func (d debateDocument) aggregate() models.DebateAggregate {
	return models.DebateAggregate{
		Debate:    d.Debate,
		Rounds:    d.Rounds,
		Arguments: d.Arguments,
	}
}

// MongoDebateStore persists aggregates in the debates collection using
// optimistic concurrency on the version field.
type MongoDebateStore struct {
	coll        *mongo.Collection
	maxAttempts int
}

func NewMongoDebateStore(database *mongo.Database) *MongoDebateStore {
	return &MongoDebateStore{
		coll:        database.Collection(debatesCollection),
		maxAttempts: defaultMaxAttempts,
	}
}

// EnsureIndexes creates the lookup indexes used by debater dashboards.
func (s *MongoDebateStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "debate.supportDebaterId", Value: 1}}},
		{Keys: bson.D{{Key: "debate.opposeDebaterId", Value: 1}}},
		{Keys: bson.D{{Key: "debate.status", Value: 1}, {Key: "debate.createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create debate indexes: %w", err)
	}
	return nil
}

func (s *MongoDebateStore) Create(ctx context.Context, agg models.DebateAggregate) error {
	_, err := s.coll.InsertOne(ctx, newDebateDocument(agg, 1))
	if mongo.IsDuplicateKeyError(err) {
		return debate.ErrDuplicateDebateID
	}
	if err != nil {
		return fmt.Errorf("failed to insert debate: %w", err)
	}
	return nil
}

func (s *MongoDebateStore) Get(ctx context.Context, debateID primitive.ObjectID) (models.DebateAggregate, error) {
	doc, err := s.find(ctx, debateID)
	if err != nil {
		return models.DebateAggregate{}, err
	}
	return doc.aggregate(), nil
}

// Update reads the current version, applies fn and replaces the document only
// if the version is unchanged. A lost race reloads and re-runs fn, so checks in
// fn always see the state they commit against.
func (s *MongoDebateStore) Update(ctx context.Context, debateID primitive.ObjectID, fn func(agg *models.DebateAggregate) error) (models.DebateAggregate, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		doc, err := s.find(ctx, debateID)
		if err != nil {
			return models.DebateAggregate{}, err
		}

		agg := doc.aggregate()
		if err := fn(&agg); err != nil {
			return models.DebateAggregate{}, err
		}

		filter := bson.M{"_id": debateID, "version": doc.Version}
		res, err := s.coll.ReplaceOne(ctx, filter, newDebateDocument(agg, doc.Version+1), options.Replace())
		if err != nil {
			return models.DebateAggregate{}, fmt.Errorf("failed to replace debate: %w", err)
		}
		if res.MatchedCount == 1 {
			return agg, nil
		}
	}
	return models.DebateAggregate{}, debate.ErrConcurrentUpdate
}

func (s *MongoDebateStore) find(ctx context.Context, debateID primitive.ObjectID) (debateDocument, error) {
	var doc debateDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": debateID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return debateDocument{}, debate.ErrRecordNotFound
	}
	if err != nil {
		return debateDocument{}, fmt.Errorf("failed to load debate: %w", err)
	}
	return doc, nil
}
