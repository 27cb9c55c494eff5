package debate

import (
	"math"
	"time"

	"debatearena/models"
)

// ComputeResult derives the outcome of a debate from its audience stance pairs.
// Only pairs with both measurements count. The winner is decided on the
// unrounded average shift; the reported delta is rounded to one decimal. The
// market snapshot is carried for display and plays no part in the decision.
func (p Policy) ComputeResult(pairs []models.StancePair, market models.MarketSnapshot, now time.Time) models.DebateResult {
	var (
		complete    int
		mindChanges int
		sum         float64
	)
	for _, pair := range pairs {
		if !pair.Complete() {
			continue
		}
		shift := *pair.Post - *pair.Pre
		complete++
		sum += float64(shift)
		if abs(shift) >= p.MindChangeThreshold {
			mindChanges++
		}
	}

	var delta float64
	if complete > 0 {
		delta = sum / float64(complete)
	}

	winner := models.WinnerTie
	switch {
	case delta >= p.WinnerThreshold:
		winner = models.WinnerSupport
	case delta <= -p.WinnerThreshold:
		winner = models.WinnerOppose
	}

	return models.DebateResult{
		Winner:             winner,
		NetPersuasionDelta: math.Round(delta*10) / 10,
		MindChanges:        mindChanges,
		CompletePairs:      complete,
		Market:             market,
		ComputedAt:         now,
	}
}

// concludeDebate moves an active debate to its terminal state. Concluding twice
// is a conflict; the stored result is never recomputed.
func concludeDebate(d *models.Debate, result models.DebateResult, now time.Time) error {
	if d.Status == models.DebateConcluded || d.ConcludedAt != nil {
		return conflictError("debate already concluded")
	}
	at := now
	d.Status = models.DebateConcluded
	d.ConcludedAt = &at
	d.Result = &result
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
