package debate

import "debatearena/models"

const (
	defaultOpeningLimit        = 2000
	defaultRebuttalLimit       = 1500
	defaultClosingLimit        = 1000
	defaultMinArgumentLength   = 1
	defaultMaxResolutionLength = 500
	defaultWinnerThreshold     = 5.0
	defaultMindChangeThreshold = 10
)

// Policy holds the tunable limits of the debate lifecycle.
type Policy struct {
	OpeningLimit        int
	RebuttalLimit       int
	ClosingLimit        int
	MinArgumentLength   int
	MaxResolutionLength int
	// WinnerThreshold is the net persuasion shift a side needs to win.
	WinnerThreshold float64
	// MindChangeThreshold is the absolute stance shift counted as a changed mind.
	MindChangeThreshold int
}

// DefaultPolicy returns the standard three-round limits.
func DefaultPolicy() Policy {
	return Policy{
		OpeningLimit:        defaultOpeningLimit,
		RebuttalLimit:       defaultRebuttalLimit,
		ClosingLimit:        defaultClosingLimit,
		MinArgumentLength:   defaultMinArgumentLength,
		MaxResolutionLength: defaultMaxResolutionLength,
		WinnerThreshold:     defaultWinnerThreshold,
		MindChangeThreshold: defaultMindChangeThreshold,
	}
}

// withDefaults fills unset fields.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.OpeningLimit <= 0 {
		p.OpeningLimit = d.OpeningLimit
	}
	if p.RebuttalLimit <= 0 {
		p.RebuttalLimit = d.RebuttalLimit
	}
	if p.ClosingLimit <= 0 {
		p.ClosingLimit = d.ClosingLimit
	}
	if p.MinArgumentLength <= 0 {
		p.MinArgumentLength = d.MinArgumentLength
	}
	if p.MaxResolutionLength <= 0 {
		p.MaxResolutionLength = d.MaxResolutionLength
	}
	if p.WinnerThreshold <= 0 {
		p.WinnerThreshold = d.WinnerThreshold
	}
	if p.MindChangeThreshold <= 0 {
		p.MindChangeThreshold = d.MindChangeThreshold
	}
	return p
}

// LimitFor returns the maximum argument length for a round type.
func (p Policy) LimitFor(rt models.RoundType) int {
	switch rt {
	case models.RoundOpening:
		return p.OpeningLimit
	case models.RoundRebuttal:
		return p.RebuttalLimit
	case models.RoundClosing:
		return p.ClosingLimit
	}
	return 0
}
