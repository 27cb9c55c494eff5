package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	debatesCollection       = "debates"
	usersCollection         = "users"
	ratingHistoryCollection = "rating_history"
)

// extractDBName parses the database name from the URI, defaulting to "debatearena"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debatearena"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "debatearena"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI.
// An empty name falls back to the database in the URI path.
func ConnectMongoDB(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if name == "" {
		name = extractDBName(uri)
	}
	slog.Info("connected to MongoDB", "event", "mongo_connected", "database", name)
	return client, client.Database(name), nil
}
