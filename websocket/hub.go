package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"debatearena/internal/debate"
	"debatearena/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a spectator connection subscribed to one debate.
type Client struct {
	Conn     *websocket.Conn
	DebateID string
	writeMu  sync.Mutex
}

// SafeWriteJSON safely writes JSON data to the client's WebSocket connection
func (c *Client) SafeWriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Watcher starts and stops an upstream feed for a debate.
type Watcher interface {
	Watch(ctx context.Context, debateID string) error
	Unwatch(debateID string)
}

// Hub tracks spectators per debate and pushes events to them.
type Hub struct {
	mu      sync.RWMutex
	debates map[string]map[*Client]bool
	watcher Watcher
	lookup  DebateLookup
	logger  *slog.Logger

	// watchMu orders Watch/Unwatch calls so they match the latest membership.
	watchMu sync.Mutex
}

// DebateLookup reports whether a debate exists. It returns a not-found
// *debate.Error for unknown or malformed ids.
type DebateLookup func(ctx context.Context, debateID string) error

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		debates: make(map[string]map[*Client]bool),
		logger:  logger,
	}
}

// SetWatcher makes the hub subscribe to an upstream feed while a debate has
// spectators.
func (h *Hub) SetWatcher(w Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watcher = w
}

// SetLookup makes ServeDebate refuse spectators of unknown debates.
func (h *Hub) SetLookup(lookup DebateLookup) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lookup = lookup
}

// Register registers a client for a debate's updates
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	clients, ok := h.debates[client.DebateID]
	if !ok {
		clients = make(map[*Client]bool)
		h.debates[client.DebateID] = clients
	}
	clients[client] = true
	first := len(clients) == 1
	h.mu.Unlock()

	if first {
		h.syncWatch(client.DebateID)
	}
	h.logger.Debug("spectator registered", "debate_id", client.DebateID)
}

// Unregister removes a client and closes its connection.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	clients, ok := h.debates[client.DebateID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	last := len(clients) == 0
	if last {
		delete(h.debates, client.DebateID)
	}
	h.mu.Unlock()

	if client.Conn != nil {
		client.Conn.Close()
	}
	if last {
		h.syncWatch(client.DebateID)
	}
	h.logger.Debug("spectator unregistered", "debate_id", client.DebateID)
}

// syncWatch starts or stops the upstream feed to match the debate's current
// spectator count, read under watchMu so concurrent joins and leaves cannot
// apply out of order.
func (h *Hub) syncWatch(debateID string) {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()

	h.mu.RLock()
	watcher := h.watcher
	watched := len(h.debates[debateID]) > 0
	h.mu.RUnlock()
	if watcher == nil {
		return
	}

	if !watched {
		watcher.Unwatch(debateID)
		return
	}
	if err := watcher.Watch(context.Background(), debateID); err != nil {
		h.logger.Warn("failed to watch debate stream", "debate_id", debateID, "error", err)
	}
}

// SubscriberCount returns the number of spectators of a debate.
func (h *Hub) SubscriberCount(debateID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.debates[debateID])
}

// BroadcastToDebate writes an event to every spectator of the debate.
func (h *Hub) BroadcastToDebate(debateID string, event *debate.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.debates[debateID] {
		if err := client.SafeWriteJSON(event); err != nil {
			h.logger.Warn("error broadcasting debate event", "debate_id", debateID, "type", event.Type, "error", err)
			go h.Unregister(client)
		}
	}
}

// NotifyArgumentSubmitted and its siblings make the hub an in-process
// debate.Broadcaster for single-instance deployments.
func (h *Hub) NotifyArgumentSubmitted(_ context.Context, ev debate.ArgumentSubmitted) error {
	event, err := debate.ArgumentEvent(ev)
	if err != nil {
		return err
	}
	h.BroadcastToDebate(ev.DebateID, event)
	return nil
}

func (h *Hub) NotifyRoundAdvance(_ context.Context, ev debate.RoundAdvance) error {
	event, err := debate.RoundAdvanceEvent(ev)
	if err != nil {
		return err
	}
	h.BroadcastToDebate(ev.DebateID, event)
	return nil
}

func (h *Hub) NotifyDebateConcluded(_ context.Context, debateID string, result models.DebateResult) error {
	event, err := debate.ConcludedEvent(debateID, result)
	if err != nil {
		return err
	}
	h.BroadcastToDebate(debateID, event)
	return nil
}

// ServeDebate upgrades GET /debates/:id/ws and streams the debate's events
// until the spectator disconnects.
func (h *Hub) ServeDebate(c *gin.Context) {
	debateID := c.Param("id")
	if debateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing debate id"})
		return
	}

	h.mu.RLock()
	lookup := h.lookup
	h.mu.RUnlock()
	if lookup != nil {
		if err := lookup(c.Request.Context(), debateID); err != nil {
			if debate.KindOf(err) == debate.KindNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Debate not found"})
				return
			}
			h.logger.Error("debate lookup failed", "debate_id", debateID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "debate_id", debateID, "error", err)
		return
	}

	client := &Client{Conn: conn, DebateID: debateID}
	h.Register(client)
	defer h.Unregister(client)

	// Spectators only listen; reads detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
