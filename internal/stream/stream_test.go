package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"debatearena/internal/debate"
	"debatearena/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type chanHub struct {
	events chan *debate.Event
}

func (h *chanHub) BroadcastToDebate(_ string, event *debate.Event) {
	h.events <- event
}

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestPublisherAppendsToDebateStream(t *testing.T) {
	_, rdb := newClient(t)
	ctx := context.Background()
	p := NewPublisher(rdb)

	err := p.NotifyRoundAdvance(ctx, debate.RoundAdvance{
		DebateID:               "d1",
		NewRound:               2,
		NewTurn:                models.SideSupport,
		PreviousRoundCompleted: 1,
		Status:                 models.DebateActive,
	})
	if err != nil {
		t.Fatalf("NotifyRoundAdvance: %v", err)
	}

	msgs, err := rdb.XRange(ctx, streamKey("d1"), "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 stream entry, got %d", len(msgs))
	}
	event, err := debate.UnmarshalEvent(msgs[0].Values["data"].(string))
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	var payload debate.RoundAdvance
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if event.Type != debate.EventRoundAdvance || payload.NewRound != 2 {
		t.Errorf("Unexpected event %+v with payload %+v", event, payload)
	}
}

func TestPublisherWithoutClient(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), &debate.Event{DebateID: "d1"}); err == nil {
		t.Error("Expected error without a Redis client")
	}
}

func TestConsumerForwardsEventsToHub(t *testing.T) {
	_, rdb := newClient(t)
	ctx := context.Background()
	hub := &chanHub{events: make(chan *debate.Event, 4)}

	c := NewConsumer(rdb, hub, nil)
	c.block = 50 * time.Millisecond
	defer c.Close()

	if err := c.Watch(ctx, "d1"); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := c.Watch(ctx, "d1"); err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	// Malformed entries are acknowledged and skipped.
	if err := rdb.XAdd(ctx, &redis.XAddArgs{Stream: streamKey("d1"), Values: map[string]interface{}{"other": "x"}}).Err(); err != nil {
		t.Fatalf("XAdd: %v", err)
	}

	p := NewPublisher(rdb)
	if err := p.NotifyDebateConcluded(ctx, "d1", models.DebateResult{Winner: models.WinnerTie}); err != nil {
		t.Fatalf("NotifyDebateConcluded: %v", err)
	}

	select {
	case event := <-hub.events:
		if event.Type != debate.EventDebateConcluded || event.DebateID != "d1" {
			t.Errorf("Unexpected event %+v", event)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for event")
	}

	c.Unwatch("d1")
	c.Unwatch("d1")
}

func TestUnwatchRemovesEmptyStream(t *testing.T) {
	_, rdb := newClient(t)
	ctx := context.Background()
	c := NewConsumer(rdb, &chanHub{events: make(chan *debate.Event, 4)}, nil)
	c.block = 50 * time.Millisecond
	defer c.Close()

	for _, id := range []string{"never-published", "x/../../y"} {
		if err := c.Watch(ctx, id); err != nil {
			t.Fatalf("Watch %s: %v", id, err)
		}
		c.Unwatch(id)
		if n, err := rdb.Exists(ctx, streamKey(id)).Result(); err != nil || n != 0 {
			t.Errorf("Expected %s stream to be removed, got %d (%v)", id, n, err)
		}
	}

	if err := c.Watch(ctx, "d1"); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := NewPublisher(rdb).NotifyDebateConcluded(ctx, "d1", models.DebateResult{Winner: models.WinnerTie}); err != nil {
		t.Fatalf("NotifyDebateConcluded: %v", err)
	}
	c.Unwatch("d1")
	if n, _ := rdb.XLen(ctx, streamKey("d1")).Result(); n != 1 {
		t.Errorf("Expected published history to be kept, got %d entries", n)
	}
}
