package stance

import (
	"context"
	"math"
	"time"

	"debatearena/models"
)

// PairSource is the read side of a stance store.
type PairSource interface {
	StancePairs(ctx context.Context, debateID string) ([]models.StancePair, error)
}

// Market prices the support side at the audience's latest average support.
// The snapshot is shown next to the result only.
type Market struct {
	Source PairSource
	Now    func() time.Time
}

func NewMarket(source PairSource) *Market {
	return &Market{Source: source, Now: func() time.Time { return time.Now().UTC() }}
}

// Snapshot implements debate.MarketSource. With no measurements both sides
// are priced at 0.5.
func (m *Market) Snapshot(ctx context.Context, debateID string) (models.MarketSnapshot, error) {
	pairs, err := m.Source.StancePairs(ctx, debateID)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	var sum, samples int
	for _, p := range pairs {
		switch {
		case p.Post != nil:
			sum += *p.Post
		case p.Pre != nil:
			sum += *p.Pre
		default:
			continue
		}
		samples++
	}

	support := 0.5
	if samples > 0 {
		support = math.Round(float64(sum)/float64(samples)) / 100
	}
	return models.MarketSnapshot{
		SupportPrice: support,
		OpposePrice:  math.Round((1-support)*100) / 100,
		Samples:      samples,
		CapturedAt:   m.Now(),
	}, nil
}
