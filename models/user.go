package models

import (
	"time"
)

// User holds the per-user state owned by the reputation and progression
// collaborators. Identity and profile data live in the auth service.
type User struct {
	ID                  string     `bson:"_id" json:"id"`
	Rating              float64    `bson:"rating" json:"rating"`
	RD                  float64    `bson:"rd" json:"rd"`
	Volatility          float64    `bson:"volatility" json:"volatility"`
	LastRatingUpdate    time.Time  `bson:"lastRatingUpdate" json:"lastRatingUpdate"`
	DebatesParticipated int        `bson:"debatesParticipated" json:"debatesParticipated"`
	Graduated           bool       `bson:"graduated" json:"graduated"`
	GraduatedAt         *time.Time `bson:"graduatedAt,omitempty" json:"graduatedAt,omitempty"`
	UpdatedAt           time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// UserProgress is the progression view of a user.
type UserProgress struct {
	UserID              string `json:"userId"`
	DebatesParticipated int    `json:"debatesParticipated"`
	Graduated           bool   `json:"graduated"`
}

// Progress projects the progression fields.
func (u User) Progress() UserProgress {
	return UserProgress{
		UserID:              u.ID,
		DebatesParticipated: u.DebatesParticipated,
		Graduated:           u.Graduated,
	}
}
