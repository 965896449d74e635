package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/metrics"
)

// ConversationGroup names the fan-out group for a chat channel.
func ConversationGroup(conversationID string) string { return "conversation:" + conversationID }

// UserGroup names the personal notification group.
func UserGroup(userID string) string { return "user:" + userID }

// Client is one subscribed connection. The gateway's write pump drains
// Out; publishes that can't be buffered are dropped rather than blocking
// the bus.
type Client struct {
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// Out is the frame stream for the connection's write pump.
func (c *Client) Out() <-chan []byte { return c.out }

// Done closes when the client is removed from the hub.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub is the process-wide group registry. Join, leave, publish and close
// are all safe concurrently; a close racing a publish neither panics nor
// drops delivery to remaining members.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	log     *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		log:     log,
	}
}

func (h *Hub) NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{out: make(chan []byte, buffer), done: make(chan struct{})}
}

func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
	if _, ok := h.members[c]; !ok {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][group] = struct{}{}
}

func (h *Hub) Leave(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(group, c)
}

func (h *Hub) leaveLocked(group string, c *Client) {
	if set, ok := h.groups[group]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.groups, group)
		}
	}
	if set, ok := h.members[c]; ok {
		delete(set, group)
	}
}

// CloseClient removes the client from every group it joined and signals
// its Done channel. Safe to call more than once and on any disconnect
// path, graceful or abrupt.
func (h *Hub) CloseClient(c *Client) {
	h.mu.Lock()
	for group := range h.members[c] {
		h.leaveLocked(group, c)
	}
	delete(h.members, c)
	h.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Publish marshals the payload once and hands it to every subscriber of
// the group. Best-effort: zero subscribers is a no-op, and a subscriber
// whose buffer is full is skipped so it can never block the rest.
func (h *Hub) Publish(group string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		h.log.Warnw("fanout marshal", "group", group, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[group] {
		select {
		case c.out <- b:
		default:
			metrics.FanoutDropped.Inc()
		}
	}
}

// SubscriberCount reports current membership of a group.
func (h *Hub) SubscriberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
