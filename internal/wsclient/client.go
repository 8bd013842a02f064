// Package wsclient provides a reconnecting client for the realtime event
// socket, used by companion tools and integration tests.
package wsclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/services"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = 5000 * time.Millisecond
)

// Handler is invoked for every event received on a subscribed channel.
type Handler func(event services.Event)

// Client maintains a websocket connection to the event endpoint and
// redials on failure with a bounded retry budget. Sending while
// disconnected is a logged no-op, mirroring server-side fan-out.
type Client struct {
	url    string
	dialer *websocket.Dialer

	maxAttempts int
	retryDelay  time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	handlers  map[services.EventType][]Handler
	channels  map[string]struct{}
	attempts  int
	connected bool
	done      chan struct{}
	terminal  chan error
}

func New(url string) *Client {
	return &Client{
		url:         url,
		dialer:      websocket.DefaultDialer,
		maxAttempts: maxReconnectAttempts,
		retryDelay:  reconnectDelay,
		handlers:    make(map[services.EventType][]Handler),
		channels:    make(map[string]struct{}),
		done:        make(chan struct{}),
		terminal:    make(chan error, 1),
	}
}

// Done reports terminal failure. It yields a single error once the
// reconnect budget is exhausted; a clean Close never fires it.
func (c *Client) Done() <-chan error {
	return c.terminal
}

// On registers a handler for an event type. Handlers run on the read loop
// goroutine.
func (c *Client) On(eventType services.EventType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], h)
}

// Connect dials the endpoint and starts the read loop.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}
	c.conn = conn
	c.connected = true
	c.attempts = 0
	go c.readLoop(conn)
	return nil
}

// Subscribe joins a channel. The subscription survives reconnects.
func (c *Client) Subscribe(channel string) error {
	c.mu.Lock()
	c.channels[channel] = struct{}{}
	c.mu.Unlock()
	return c.Send(map[string]string{"action": "subscribe", "channel": channel})
}

// Unsubscribe leaves a channel.
func (c *Client) Unsubscribe(channel string) error {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
	return c.Send(map[string]string{"action": "unsubscribe", "channel": channel})
}

// Send writes a JSON message. When the connection is down the message is
// dropped with a warning rather than queued.
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Warn().Msg("Not connected, message dropped")
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close stops the client and disables reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			select {
			case <-c.done:
				return
			default:
			}
			log.Warn().Err(err).Msg("Connection lost, scheduling reconnect")
			c.reconnect()
			return
		}

		var event services.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Msg("Failed to decode event")
			continue
		}
		c.dispatch(event)
	}
}

func (c *Client) dispatch(event services.Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[event.Type]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

// reconnect redials with a fixed delay. Once the attempt budget is
// exhausted it stops retrying and surfaces a terminal error on Done.
func (c *Client) reconnect() {
	var lastErr error
	for {
		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		c.mu.Unlock()
		if attempts > c.maxAttempts {
			log.Error().Err(lastErr).Int("attempts", c.maxAttempts).Msg("Reconnect budget exhausted, giving up")
			err := fmt.Errorf("reconnect budget exhausted after %d attempts", c.maxAttempts)
			if lastErr != nil {
				err = fmt.Errorf("reconnect budget exhausted after %d attempts: %w", c.maxAttempts, lastErr)
			}
			select {
			case c.terminal <- err:
			default:
			}
			return
		}

		select {
		case <-c.done:
			return
		case <-time.After(c.retryDelay):
		}

		conn, _, err := c.dialer.Dial(c.url, nil)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempts).Msg("Reconnect failed")
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.connected = true
		c.attempts = 0
		channels := make([]string, 0, len(c.channels))
		for ch := range c.channels {
			channels = append(channels, ch)
		}
		c.mu.Unlock()

		log.Info().Int("attempt", attempts).Msg("Reconnected")
		for _, ch := range channels {
			if err := c.Send(map[string]string{"action": "subscribe", "channel": ch}); err != nil {
				log.Warn().Err(err).Str("channel", ch).Msg("Failed to restore subscription")
			}
		}
		go c.readLoop(conn)
		return
	}
}
