package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spooldock/spooldock/internal/logger"
)

const (
	EventAdded   = "added"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event is the payload delivered to subscribers. Payload holds the entity
// state after commit, or the pre-delete state for deleted events.
type Event struct {
	Type     string          `json:"type"`
	Resource string          `json:"resource"`
	Date     time.Time       `json:"date"`
	Payload  json.RawMessage `json:"payload"`
}

// BroadcastKey subscribes to every entity of a resource, InstanceKey to one
// entity.
func BroadcastKey(resource string) string { return resource }

func InstanceKey(resource, id string) string {
	return resource + "/" + id
}

type Client struct {
	ID       uuid.UUID
	Outbound chan Event
	keys     map[string]bool
	done     chan struct{}
	closed   bool
}

// Done is closed when the client is detached from the hub.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub is the process-local publish/subscribe fabric. An optional Bridge
// forwards events to and from other instances.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
	instanceID    string
	bridge        Bridge
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "EventHub"),
		subscriptions: make(map[string]map[*Client]bool),
		instanceID:    uuid.NewString(),
	}
}

func (h *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Outbound: make(chan Event, 16),
		keys:     make(map[string]bool),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Subscribe(c *Client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if key == "" {
		return
	}
	c.keys[key] = true
	clients, ok := h.subscriptions[key]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[key] = clients
	}
	clients[c] = true
	h.log.Debug("Client subscribed", "clientID", c.ID, "key", key)
}

func (h *Hub) Unsubscribe(c *Client, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.keys, key)
	h.detachLocked(c, key)
}

// CloseClient detaches the client from every key and closes its channels.
// Safe to call once per client on any exit path.
func (h *Hub) CloseClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for key := range c.keys {
		h.detachLocked(c, key)
	}
	c.keys = make(map[string]bool)
	close(c.done)
	close(c.Outbound)
	h.log.Debug("Client detached", "clientID", c.ID)
}

func (h *Hub) detachLocked(c *Client, key string) {
	if clients, ok := h.subscriptions[key]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscriptions, key)
		}
	}
}

// Publish fans an entity event out to the broadcast key and the instance
// key. Delivery is best-effort: a full subscriber buffer drops that copy and
// never fails the originating mutation.
func (h *Hub) Publish(eventType, resource, id string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Could not marshal event payload", "resource", resource, "id", id, "error", err)
		return
	}
	evt := Event{
		Type:     eventType,
		Resource: resource,
		Date:     time.Now().UTC().Truncate(time.Second),
		Payload:  raw,
	}
	keys := []string{BroadcastKey(resource), InstanceKey(resource, id)}
	h.deliver(evt, keys)

	if h.bridge != nil {
		msg := WireMessage{Origin: h.instanceID, Keys: keys, Event: evt}
		if err := h.bridge.Publish(context.Background(), msg); err != nil {
			h.log.Warn("Bridge publish failed", "error", err)
		}
	}
}

func (h *Hub) deliver(evt Event, keys []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range keys {
		clients, ok := h.subscriptions[key]
		if !ok {
			continue
		}
		for c := range clients {
			select {
			case c.Outbound <- evt:
			default:
				h.log.Warn("Dropping event; subscriber buffer full", "clientID", c.ID, "key", key)
			}
		}
	}
}

// AttachBridge wires a cross-process forwarder. Events arriving from other
// instances are delivered to local subscribers; our own are skipped.
func (h *Hub) AttachBridge(ctx context.Context, bridge Bridge) error {
	if bridge == nil {
		return fmt.Errorf("bridge required")
	}
	h.bridge = bridge
	return bridge.Start(ctx, func(msg WireMessage) {
		if msg.Origin == h.instanceID {
			return
		}
		h.deliver(msg.Event, msg.Keys)
	})
}

// WireMessage is the envelope a Bridge carries between instances.
type WireMessage struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
	Event  Event    `json:"event"`
}

type Bridge interface {
	Publish(ctx context.Context, msg WireMessage) error
	Start(ctx context.Context, onMsg func(msg WireMessage)) error
	Close() error
}
