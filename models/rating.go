package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingHistory records one rating change caused by a concluded debate.
type RatingHistory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"userId" json:"userId"`
	DebateID  primitive.ObjectID `bson:"debateId" json:"debateId"`
	Side      Side               `bson:"side" json:"side"`
	Outcome   Winner             `bson:"outcome" json:"outcome"`
	OldRating float64            `bson:"oldRating" json:"oldRating"`
	NewRating float64            `bson:"newRating" json:"newRating"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// LeaderboardEntry is a ranked debater.
type LeaderboardEntry struct {
	Rank                int     `json:"rank"`
	UserID              string  `json:"userId"`
	Rating              float64 `json:"rating"`
	RD                  float64 `json:"rd"`
	DebatesParticipated int     `json:"debatesParticipated"`
	Graduated           bool    `json:"graduated"`
}
