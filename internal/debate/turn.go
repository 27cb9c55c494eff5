package debate

import "debatearena/models"

const (
	reasonNotDebater = "not an assigned debater"
	reasonNotTurn    = "not your turn"
	reasonInactive   = "debate not active"
)

// CanSubmit decides whether submitterID may file an argument right now. The
// checks run in a fixed order: seat, then turn, then status. It must be called
// inside the same atomic update that records the argument.
func CanSubmit(d models.Debate, submitterID string) (models.Side, error) {
	side, ok := d.SideOf(submitterID)
	if !ok {
		return "", authorizationError(reasonNotDebater)
	}
	if side != d.CurrentTurn {
		return "", authorizationError(reasonNotTurn)
	}
	if d.Status != models.DebateActive {
		return "", authorizationError(reasonInactive)
	}
	return side, nil
}
