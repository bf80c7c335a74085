// Package websocket provides the realtime change channel. Clients subscribe
// to topics and receive small change events; they refetch rows themselves.
package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventNotificationsChanged = "notifications.changed"
	EventInsert               = "INSERT"
	EventUpdate               = "UPDATE"
	EventDelete               = "DELETE"
	EventSubscriptionRefused  = "subscription.refused"
)

// Event is a change notification. It never carries row data.
type Event struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	Table     string    `json:"table,omitempty"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage represents an inbound message from a WebSocket client.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Publisher is implemented by the hub and consumed by domain services.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Client represents a single WebSocket connection.
type Client struct {
	ID     string
	UserID string
	Topics []string
	Send   chan []byte
	hub    *Hub

	// ctx carries the caller's identity for subscription checks.
	ctx context.Context
}

func (c *Client) context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Hub tracks clients and their topic subscriptions. All operations are
// guarded by mu.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	logger  zerolog.Logger

	canSeePatient PatientAuthorizer
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// SetPatientAuthorizer installs the check for patient-scoped table topics.
// Without one, every patient_id topic is refused.
func (h *Hub) SetPatientAuthorizer(fn PatientAuthorizer) {
	h.mu.Lock()
	h.canSeePatient = fn
	h.mu.Unlock()
}

// Register adds a client to the hub and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.hub = h
	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.addLocked(topic, client)
	}
}

// Unregister removes a client from every topic and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.removeLocked(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) addLocked(topic string, client *Client) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) removeLocked(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// Subscribe adds the topics the client may see and returns the refused ones.
// Ownership checks run before the hub lock is taken since they may hit the
// database.
func (h *Hub) Subscribe(client *Client, topics []string) (refused []string) {
	h.mu.RLock()
	canSeePatient := h.canSeePatient
	h.mu.RUnlock()

	allowed := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !h.allowed(client, topic, canSeePatient) {
			refused = append(refused, topic)
			continue
		}
		allowed = append(allowed, topic)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range allowed {
		if _, already := h.clients[topic][client]; already {
			continue
		}
		h.addLocked(topic, client)
		client.Topics = append(client.Topics, topic)
	}
	return refused
}

func (h *Hub) allowed(client *Client, topic string, canSeePatient PatientAuthorizer) bool {
	if !CanSubscribe(client.UserID, topic) {
		return false
	}
	if strings.HasPrefix(topic, notificationsPrefix) {
		return true
	}
	return tableTopicAllowed(client.context(), client.UserID, topic, canSeePatient)
}

// Unsubscribe removes topics from an already-registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		removeSet[t] = struct{}{}
		h.removeLocked(t, client)
	}

	remaining := client.Topics[:0]
	for _, t := range client.Topics {
		if _, rm := removeSet[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches an inbound ClientMessage. Refused subscriptions
// are reported back to the client.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		for _, topic := range h.Subscribe(client, msg.Topics) {
			h.sendTo(client, Event{Type: EventSubscriptionRefused, Topic: topic, Timestamp: time.Now().UTC()})
		}
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

func (h *Hub) sendTo(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// Broadcast sends an event to all clients subscribed to the given topic.
// Clients with a full buffer are skipped.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Debug().Str("client", client.ID).Str("topic", topic).Msg("websocket: client buffer full, event dropped")
		}
	}
}

// Publish broadcasts the event on its topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a specific topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
