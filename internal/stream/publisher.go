// Package stream fans debate events out through Redis Streams so that every
// server instance can push them to its own spectators.
package stream

import (
	"context"
	"fmt"

	"debatearena/internal/debate"
	"debatearena/models"

	"github.com/redis/go-redis/v9"
)

const defaultMaxLen = 10000

// Publisher implements debate.Broadcaster by appending to the debate's stream.
type Publisher struct {
	rdb    *redis.Client
	maxLen int64
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, maxLen: defaultMaxLen}
}

func (p *Publisher) NotifyArgumentSubmitted(ctx context.Context, ev debate.ArgumentSubmitted) error {
	event, err := debate.ArgumentEvent(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, event)
}

func (p *Publisher) NotifyRoundAdvance(ctx context.Context, ev debate.RoundAdvance) error {
	event, err := debate.RoundAdvanceEvent(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, event)
}

func (p *Publisher) NotifyDebateConcluded(ctx context.Context, debateID string, result models.DebateResult) error {
	event, err := debate.ConcludedEvent(debateID, result)
	if err != nil {
		return err
	}
	return p.Publish(ctx, event)
}

// Publish appends an event to the debate's stream, trimming old history.
func (p *Publisher) Publish(ctx context.Context, event *debate.Event) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("Redis client not available")
	}

	data, err := debate.MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(event.DebateID),
		Values: map[string]interface{}{"data": data},
		MaxLen: p.maxLen,
		Approx: true,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
