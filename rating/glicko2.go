// Package rating implements Glicko-2 for head-to-head debates.
package rating

import (
	"math"
	"time"
)

const (
	glickoScale = 173.7178
	epsilon     = 0.000001
	maxSteps    = 100
)

// Player is a rated debater.
type Player struct {
	Rating     float64
	RD         float64
	Volatility float64
	LastUpdate time.Time
}

// Config holds system parameters
type Config struct {
	InitialRating float64
	InitialRD     float64
	InitialVol    float64
	Tau           float64
	// RatingPeriod is how long it takes an idle player's RD to grow by one
	// volatility step.
	RatingPeriod time.Duration
	MaxRD        float64
}

// DefaultConfig returns recommended default parameters
func DefaultConfig() Config {
	return Config{
		InitialRating: 1500,
		InitialRD:     350,
		InitialVol:    0.06,
		Tau:           0.5,
		RatingPeriod:  24 * time.Hour,
		MaxRD:         350,
	}
}

// Glicko2 applies rating updates.
type Glicko2 struct {
	Config Config
}

func New(cfg Config) *Glicko2 {
	return &Glicko2{Config: cfg}
}

// NewPlayer returns an unrated player.
func (g *Glicko2) NewPlayer(at time.Time) Player {
	return Player{
		Rating:     g.Config.InitialRating,
		RD:         g.Config.InitialRD,
		Volatility: g.Config.InitialVol,
		LastUpdate: at,
	}
}

// Match rates a single game. score is 1 when a wins, 0 when b wins and 0.5 for
// a draw.
func (g *Glicko2) Match(a, b Player, score float64, at time.Time) (Player, Player) {
	score = math.Max(0, math.Min(1, score))
	a = g.decay(a, at)
	b = g.decay(b, at)
	return g.rate(a, b, score, at), g.rate(b, a, 1-score, at)
}

// decay widens RD for the time a player sat idle.
func (g *Glicko2) decay(p Player, at time.Time) Player {
	if p.LastUpdate.IsZero() || g.Config.RatingPeriod <= 0 || !at.After(p.LastUpdate) {
		return p
	}
	periods := float64(at.Sub(p.LastUpdate)) / float64(g.Config.RatingPeriod)
	p.RD = math.Min(math.Sqrt(p.RD*p.RD+p.Volatility*p.Volatility*periods), g.Config.MaxRD)
	return p
}

func (g *Glicko2) rate(p, opp Player, score float64, at time.Time) Player {
	mu := (p.Rating - g.Config.InitialRating) / glickoScale
	phi := p.RD / glickoScale
	oppMu := (opp.Rating - g.Config.InitialRating) / glickoScale
	oppPhi := opp.RD / glickoScale

	gPhi := 1 / math.Sqrt(1+3*oppPhi*oppPhi/(math.Pi*math.Pi))
	expected := 1 / (1 + math.Exp(-gPhi*(mu-oppMu)))
	v := 1 / (gPhi * gPhi * expected * (1 - expected))
	delta := v * gPhi * (score - expected)

	sigma := g.volatility(p.Volatility, phi, v, delta)
	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	newPhi := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	newMu := mu + newPhi*newPhi*gPhi*(score-expected)

	return Player{
		Rating:     newMu*glickoScale + g.Config.InitialRating,
		RD:         math.Min(newPhi*glickoScale, g.Config.MaxRD),
		Volatility: sigma,
		LastUpdate: at,
	}
}

// volatility solves for the new sigma with the Illinois variant of regula falsi.
func (g *Glicko2) volatility(sigma, phi, v, delta float64) float64 {
	tau := g.Config.Tau
	a := math.Log(sigma * sigma)
	d2, p2 := delta*delta, phi*phi

	f := func(x float64) float64 {
		ex := math.Exp(x)
		return ex*(d2-p2-v-ex)/(2*math.Pow(p2+v+ex, 2)) - (x-a)/(tau*tau)
	}

	lo := a
	var hi float64
	if d2 > p2+v {
		hi = math.Log(d2 - p2 - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 && k < maxSteps {
			k++
		}
		hi = a - k*tau
	}

	fLo, fHi := f(lo), f(hi)
	for i := 0; i < maxSteps && math.Abs(hi-lo) > epsilon; i++ {
		c := lo + (lo-hi)*fLo/(fHi-fLo)
		fc := f(c)
		if fc*fHi <= 0 {
			lo, fLo = hi, fHi
		} else {
			fLo /= 2
		}
		hi, fHi = c, fc
	}
	return math.Exp(lo / 2)
}

// Sanitize replaces NaN, infinite or non-positive values with defaults.
func (g *Glicko2) Sanitize(p Player) Player {
	bad := func(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }
	if bad(p.Rating) {
		p.Rating = g.Config.InitialRating
	}
	if bad(p.RD) || p.RD <= 0 {
		p.RD = g.Config.InitialRD
	}
	if bad(p.Volatility) || p.Volatility <= 0 {
		p.Volatility = g.Config.InitialVol
	}
	return p
}
