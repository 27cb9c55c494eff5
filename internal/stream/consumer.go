package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"debatearena/internal/debate"

	"github.com/redis/go-redis/v9"
)

// DebateHub receives events read from the stream.
type DebateHub interface {
	BroadcastToDebate(debateID string, event *debate.Event)
}

// Consumer reads debate streams through a consumer group owned by this
// instance, so every instance sees every event.
type Consumer struct {
	rdb          *redis.Client
	hub          DebateHub
	logger       *slog.Logger
	instanceID   string
	consumerName string
	block        time.Duration

	mu      sync.Mutex
	running map[string]*watch
	wg      sync.WaitGroup
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(rdb *redis.Client, hub DebateHub, logger *slog.Logger) *Consumer {
	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		rdb:          rdb,
		hub:          hub,
		logger:       logger,
		instanceID:   instanceID,
		consumerName: "consumer-" + instanceID,
		block:        time.Second,
		running:      make(map[string]*watch),
	}
}

func (c *Consumer) groupName(debateID string) string {
	return fmt.Sprintf("debate:%s:group:%s", debateID, c.instanceID)
}

// Watch starts forwarding a debate's stream to the hub. Calling it again for a
// watched debate is a no-op.
func (c *Consumer) Watch(ctx context.Context, debateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.running[debateID]; ok {
		return nil
	}

	key := streamKey(debateID)
	group := c.groupName(debateID)
	err := c.rdb.XGroupCreateMkStream(ctx, key, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &watch{cancel: cancel, done: make(chan struct{})}
	c.running[debateID] = w
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(w.done)
		c.consumeLoop(loopCtx, debateID, key, group)
	}()
	return nil
}

// Unwatch stops forwarding a debate and drops this instance's group. A
// stream that never received an event is deleted with it.
func (c *Consumer) Unwatch(debateID string) {
	c.mu.Lock()
	w, ok := c.running[debateID]
	delete(c.running, debateID)
	c.mu.Unlock()
	if !ok {
		return
	}
	w.cancel()
	<-w.done

	ctx := context.Background()
	key := streamKey(debateID)
	if err := c.rdb.XGroupDestroy(ctx, key, c.groupName(debateID)).Err(); err != nil {
		c.logger.Debug("failed to destroy consumer group", "debate_id", debateID, "error", err)
	}
	n, err := c.rdb.XLen(ctx, key).Result()
	if err != nil {
		c.logger.Debug("failed to read stream length", "debate_id", debateID, "error", err)
		return
	}
	if n == 0 {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.logger.Debug("failed to delete empty stream", "debate_id", debateID, "error", err)
		}
	}
}

// Close stops all loops and waits for them to exit.
func (c *Consumer) Close() {
	c.mu.Lock()
	for id, w := range c.running {
		w.cancel()
		delete(c.running, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// consumeLoop continuously reads from the stream and forwards to WebSocket clients
func (c *Consumer) consumeLoop(ctx context.Context, debateID, key, group string) {
	for ctx.Err() == nil {
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: c.consumerName,
			Streams:  []string{key, ">"},
			Count:    100,
			Block:    c.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			// Another instance deleted the empty stream under our group.
			if strings.Contains(err.Error(), "NOGROUP") {
				if err := c.rdb.XGroupCreateMkStream(ctx, key, group, "$").Err(); err == nil || strings.Contains(err.Error(), "BUSYGROUP") {
					continue
				}
			}
			c.logger.Warn("stream read failed", "event", "stream_read_failed", "debate_id", debateID, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, message := range s.Messages {
				if err := c.processMessage(debateID, message); err != nil {
					c.logger.Warn("dropping malformed stream message", "debate_id", debateID, "message_id", message.ID, "error", err)
				}
				if err := c.rdb.XAck(ctx, key, group, message.ID).Err(); err != nil {
					c.logger.Debug("failed to ack stream message", "debate_id", debateID, "message_id", message.ID, "error", err)
				}
			}
		}
	}
}

// processMessage processes a stream message and forwards to WebSocket clients
func (c *Consumer) processMessage(debateID string, message redis.XMessage) error {
	data, ok := message.Values["data"].(string)
	if !ok {
		return fmt.Errorf("invalid message format: missing data field")
	}

	event, err := debate.UnmarshalEvent(data)
	if err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	c.hub.BroadcastToDebate(debateID, event)
	return nil
}
