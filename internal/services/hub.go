package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType names a real-time event variant. The string values are the wire
// event names clients subscribe to.
type EventType string

const (
	EventMatchUpdate    EventType = "match_update"
	EventChatMessage    EventType = "chat_message"
	EventTyping         EventType = "typing"
	EventEmergencyAlert EventType = "emergency_alert"
	EventSafetyCheck    EventType = "safety_check"
	EventNotification   EventType = "notification"
)

// ChatChannel returns the subscription channel for a match's chat stream.
func ChatChannel(matchID string) string {
	return "chat:" + matchID
}

// TypingChannel returns the subscription channel for a match's typing
// indicator stream.
func TypingChannel(matchID string) string {
	return "chat:" + matchID + ":typing"
}

// Channel returns the subscription channel for a plain event type.
func (t EventType) Channel() string { return string(t) }

// Event is one message on the wire.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// wsConn is the subset of *websocket.Conn the hub needs. Narrowed so tests
// can run against a stub connection.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the package here.
const textMessage = 1

// Client is one registered connection with its subscription set.
type Client struct {
	UserID string
	conn   wsConn

	mu   sync.Mutex
	subs map[string]struct{}
}

// subscribed reports whether the client listens on channel.
func (c *Client) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[channel]
	return ok
}

// Hub fans out events to connected clients. A user may hold several
// connections; each carries its own subscription set keyed by channel name.
// Events for users with no subscribed connection are dropped with a warning,
// never queued.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string][]*Client
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string][]*Client),
	}
}

// Register adds a connection for a user and returns its client handle
func (h *Hub) Register(userID string, conn wsConn) *Client {
	client := &Client{
		UserID: userID,
		conn:   conn,
		subs:   make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.byUser[userID] = append(h.byUser[userID], client)
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
	return client
}

// Unregister removes a connection and closes it
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.removeUserClient(client)
		client.conn.Close()
		log.Info().Str("user_id", client.UserID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()
}

// Subscribe adds a channel to the client's subscription set
func (h *Hub) Subscribe(client *Client, channel string) {
	client.mu.Lock()
	client.subs[channel] = struct{}{}
	client.mu.Unlock()
}

// Unsubscribe removes a channel from the client's subscription set
func (h *Hub) Unsubscribe(client *Client, channel string) {
	client.mu.Lock()
	delete(client.subs, channel)
	client.mu.Unlock()
}

// IsOnline checks if a user has at least one registered connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// SendToUser delivers an event to every connection of userID subscribed to
// channel. Returns an error only on marshal failure; an offline or
// unsubscribed user is a logged no-op.
func (h *Hub) SendToUser(userID, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	h.mu.RLock()
	clients := append([]*Client(nil), h.byUser[userID]...)
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if !client.subscribed(channel) {
			continue
		}
		if err := client.conn.WriteMessage(textMessage, data); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("channel", channel).
				Msg("Failed to write event, dropping connection")
			h.Unregister(client)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		log.Warn().Str("user_id", userID).Str("channel", channel).
			Str("event", string(event.Type)).
			Msg("No subscribed connection, event dropped")
	}
	return nil
}

// SendToMatch delivers an event to both participants of a match
func (h *Hub) SendToMatch(userA, userB, channel string, event Event) {
	if err := h.SendToUser(userA, channel, event); err != nil {
		log.Error().Err(err).Str("user_id", userA).Msg("Failed to send match event")
	}
	if err := h.SendToUser(userB, channel, event); err != nil {
		log.Error().Err(err).Str("user_id", userB).Msg("Failed to send match event")
	}
}

// removeUserClient removes a client from the byUser map. Caller holds h.mu.
func (h *Hub) removeUserClient(client *Client) {
	remaining := h.byUser[client.UserID][:0]
	for _, c := range h.byUser[client.UserID] {
		if c != client {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.byUser, client.UserID)
	} else {
		h.byUser[client.UserID] = remaining
	}
}
