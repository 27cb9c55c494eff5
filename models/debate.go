package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TotalRounds is the fixed number of rounds in every debate.
const TotalRounds = 3

// Side is one of the two debating positions.
type Side string

const (
	SideSupport Side = "support"
	SideOppose  Side = "oppose"
)

// ParseSide accepts "support" or "oppose" in any case.
func ParseSide(raw string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideSupport:
		return SideSupport, true
	case SideOppose:
		return SideOppose, true
	default:
		return "", false
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideSupport {
		return SideOppose
	}
	return SideSupport
}

func (s Side) Valid() bool {
	return s == SideSupport || s == SideOppose
}

// RoundType names the phase of a round. Each round number has exactly one type.
type RoundType string

const (
	RoundOpening  RoundType = "opening"
	RoundRebuttal RoundType = "rebuttal"
	RoundClosing  RoundType = "closing"
)

var roundTypes = [TotalRounds]RoundType{RoundOpening, RoundRebuttal, RoundClosing}

// RoundTypeFor maps a round number (1..3) to its type.
func RoundTypeFor(number int) (RoundType, bool) {
	if number < 1 || number > TotalRounds {
		return "", false
	}
	return roundTypes[number-1], true
}

func (t RoundType) Valid() bool {
	switch t {
	case RoundOpening, RoundRebuttal, RoundClosing:
		return true
	default:
		return false
	}
}

// DebateStatus only ever moves from active to concluded.
type DebateStatus string

const (
	DebateActive    DebateStatus = "active"
	DebateConcluded DebateStatus = "concluded"
)

// Winner is the outcome of a concluded debate.
type Winner string

const (
	WinnerSupport Winner = "support"
	WinnerOppose  Winner = "oppose"
	WinnerTie     Winner = "tie"
)

// Debate is the root of the debate aggregate.
type Debate struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	Resolution       string             `bson:"resolution" json:"resolution"`
	Status           DebateStatus       `bson:"status" json:"status"`
	CurrentRound     int                `bson:"currentRound" json:"currentRound"`
	CurrentTurn      Side               `bson:"currentTurn" json:"currentTurn"`
	SupportDebaterID string             `bson:"supportDebaterId" json:"supportDebaterId"`
	OpposeDebaterID  *string            `bson:"opposeDebaterId,omitempty" json:"opposeDebaterId"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	ConcludedAt      *time.Time         `bson:"concludedAt,omitempty" json:"concludedAt"`
	Result           *DebateResult      `bson:"result,omitempty" json:"result,omitempty"`
}

// DebaterFor returns the user assigned to the given side, or "" when the seat is empty.
func (d Debate) DebaterFor(side Side) string {
	if side == SideSupport {
		return d.SupportDebaterID
	}
	if d.OpposeDebaterID == nil {
		return ""
	}
	return *d.OpposeDebaterID
}

// SideOf resolves which side a user debates on.
func (d Debate) SideOf(userID string) (Side, bool) {
	if userID == "" {
		return "", false
	}
	if userID == d.SupportDebaterID {
		return SideSupport, true
	}
	if d.OpposeDebaterID != nil && userID == *d.OpposeDebaterID {
		return SideOppose, true
	}
	return "", false
}

// Round is one of the three ordered phases of a debate.
type Round struct {
	ID                primitive.ObjectID  `bson:"_id" json:"id"`
	DebateID          primitive.ObjectID  `bson:"debateId" json:"debateId"`
	RoundNumber       int                 `bson:"roundNumber" json:"roundNumber"`
	RoundType         RoundType           `bson:"roundType" json:"roundType"`
	SupportArgumentID *primitive.ObjectID `bson:"supportArgumentId,omitempty" json:"supportArgumentId"`
	OpposeArgumentID  *primitive.ObjectID `bson:"opposeArgumentId,omitempty" json:"opposeArgumentId"`
	CompletedAt       *time.Time          `bson:"completedAt,omitempty" json:"completedAt"`
}

// Slot returns the argument filed for side, or nil.
func (r Round) Slot(side Side) *primitive.ObjectID {
	if side == SideSupport {
		return r.SupportArgumentID
	}
	return r.OpposeArgumentID
}

// Fill records an argument in the side's slot. Callers check the slot is empty first.
func (r *Round) Fill(side Side, argumentID primitive.ObjectID) {
	id := argumentID
	if side == SideSupport {
		r.SupportArgumentID = &id
		return
	}
	r.OpposeArgumentID = &id
}

// BothFilled reports whether each side has argued in this round.
func (r Round) BothFilled() bool {
	return r.SupportArgumentID != nil && r.OpposeArgumentID != nil
}

// Argument is a single write-once submission by one debater.
type Argument struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	DebateID    primitive.ObjectID `bson:"debateId" json:"debateId"`
	RoundID     primitive.ObjectID `bson:"roundId" json:"roundId"`
	RoundNumber int                `bson:"roundNumber" json:"roundNumber"`
	DebaterID   string             `bson:"debaterId" json:"debaterId"`
	Side        Side               `bson:"side" json:"side"`
	Content     string             `bson:"content" json:"content"`
	ImpactScore int                `bson:"impactScore" json:"impactScore"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// StancePair is one voter's support measurement (0-100) before and after the debate.
type StancePair struct {
	VoterID string `json:"voterId"`
	Pre     *int   `json:"pre,omitempty"`
	Post    *int   `json:"post,omitempty"`
}

// Complete reports whether both measurements exist.
func (p StancePair) Complete() bool {
	return p.Pre != nil && p.Post != nil
}

// MarketSnapshot is the final support price shown next to the result. It never
// influences the winner.
type MarketSnapshot struct {
	SupportPrice float64   `bson:"supportPrice" json:"supportPrice"`
	OpposePrice  float64   `bson:"opposePrice" json:"opposePrice"`
	Samples      int       `bson:"samples" json:"samples"`
	CapturedAt   time.Time `bson:"capturedAt" json:"capturedAt"`
}

// DebateResult is persisted on the debate when it concludes.
type DebateResult struct {
	Winner             Winner         `bson:"winner" json:"winner"`
	NetPersuasionDelta float64        `bson:"netPersuasionDelta" json:"netPersuasionDelta"`
	MindChanges        int            `bson:"mindChanges" json:"mindChanges"`
	CompletePairs      int            `bson:"completePairs" json:"completePairs"`
	Market             MarketSnapshot `bson:"market" json:"market"`
	ComputedAt         time.Time      `bson:"computedAt" json:"computedAt"`
}

// DebateAggregate is the unit of atomic read-modify-write: a debate, its three
// rounds in round-number order and every argument filed so far.
type DebateAggregate struct {
	Debate    Debate     `bson:"debate" json:"debate"`
	Rounds    []Round    `bson:"rounds" json:"rounds"`
	Arguments []Argument `bson:"arguments" json:"arguments"`
}

// Round returns the round with the given number.
func (a *DebateAggregate) Round(number int) (*Round, bool) {
	for i := range a.Rounds {
		if a.Rounds[i].RoundNumber == number {
			return &a.Rounds[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so a failed mutation never leaks into stored state.
func (a DebateAggregate) Clone() DebateAggregate {
	out := DebateAggregate{Debate: a.Debate}
	if a.Debate.OpposeDebaterID != nil {
		v := *a.Debate.OpposeDebaterID
		out.Debate.OpposeDebaterID = &v
	}
	if a.Debate.ConcludedAt != nil {
		v := *a.Debate.ConcludedAt
		out.Debate.ConcludedAt = &v
	}
	if a.Debate.Result != nil {
		v := *a.Debate.Result
		out.Debate.Result = &v
	}

	out.Rounds = make([]Round, len(a.Rounds))
	for i, r := range a.Rounds {
		if r.SupportArgumentID != nil {
			v := *r.SupportArgumentID
			r.SupportArgumentID = &v
		}
		if r.OpposeArgumentID != nil {
			v := *r.OpposeArgumentID
			r.OpposeArgumentID = &v
		}
		if r.CompletedAt != nil {
			v := *r.CompletedAt
			r.CompletedAt = &v
		}
		out.Rounds[i] = r
	}

	out.Arguments = make([]Argument, len(a.Arguments))
	copy(out.Arguments, a.Arguments)
	return out
}
