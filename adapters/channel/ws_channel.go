// Package channel implements the persistent backend connection used by
// the wallet linking flow.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/ports"
)

const (
	// DefaultHandshakeTimeout bounds the websocket dial
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a single message write
	DefaultWriteTimeout = 10 * time.Second
)

// Config configures a WebSocketChannel
type Config struct {
	// URL is the websocket endpoint of the backend
	URL string

	// InitData is the identity assertion sent as the auth message
	InitData string

	// Policy drives reconnect timing; zero value means the default
	// constant-delay policy.
	Policy core.ReconnectPolicy

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	Logger zerolog.Logger
}

// WebSocketChannel owns one logical session with the backend: the
// physical websocket connection, the authentication handshake over it,
// and dispatch of incoming messages. All state transitions are
// serialized behind one mutex so transport callbacks and the reconnect
// timer can never produce divergent views of the session state.
type WebSocketChannel struct {
	url              string
	initData         string
	policy           core.ReconnectPolicy
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	log              zerolog.Logger

	mu         sync.Mutex
	writeMu    sync.Mutex // serializes socket writers, held without mu in Send
	conn       *websocket.Conn
	state      core.SessionState
	handlers   []ports.MessageHandler
	pending    any // last unacknowledged request, redelivered after re-auth
	attempt    int
	generation int // bumped per connection; stale read loops drop out
	timer      *time.Timer
	closed     bool
}

// New creates a channel for the given backend URL and identity assertion
func New(cfg Config) *WebSocketChannel {
	if cfg.Policy == (core.ReconnectPolicy{}) {
		cfg.Policy = core.DefaultReconnectPolicy()
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	return &WebSocketChannel{
		url:              cfg.URL,
		initData:         cfg.InitData,
		policy:           cfg.Policy,
		handshakeTimeout: cfg.HandshakeTimeout,
		writeTimeout:     cfg.WriteTimeout,
		log:              cfg.Logger,
		state:            core.StateDisconnected,
	}
}

// Connect opens the connection and sends the identity assertion. Any
// previous connection is fully torn down first, which also abandons
// every wait tied to it; a proof flow bound to the old connection is
// not resurrected.
func (c *WebSocketChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return core.ErrChannelClosed
	}

	c.teardownLocked()
	c.state = core.StateConnecting

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.state = core.StateDisconnected
		c.scheduleReconnectLocked()
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.generation++
	c.attempt = 0
	c.state = core.StateAuthPending

	c.log.Debug().Str("url", c.url).Msg("connected, authenticating")

	if err := c.writeLocked(core.NewAuthMessage(c.initData)); err != nil {
		c.teardownLocked()
		c.state = core.StateDisconnected
		c.scheduleReconnectLocked()
		return fmt.Errorf("failed to send auth: %w", err)
	}

	go c.readLoop(conn, c.generation)

	return nil
}

// Send writes a message on the live connection. Sends against a
// disconnected channel fail fast; queuing here could replay a request
// against a since-rotated challenge. A send the session state machine
// does not allow is rejected before anything reaches the wire.
func (c *WebSocketChannel) Send(msg any) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return core.ErrChannelClosed
	}
	if c.conn == nil || c.state == core.StateDisconnected || c.state == core.StateConnecting {
		c.mu.Unlock()
		return core.ErrNotConnected
	}

	switch msg.(type) {
	case core.GetProofMessage:
		next, err := core.Transition(c.state, core.EventChallengeRequested)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("cannot request a challenge while %s: %w", c.state, err)
		}
		c.state = next
		c.pending = msg
	case core.VerifyMessage:
		next, err := core.Transition(c.state, core.EventProofSubmitted)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("cannot submit a proof while %s: %w", c.state, err)
		}
		c.state = next
		c.pending = msg
	}

	// Write outside the state mutex so a slow peer cannot stall State()
	// or the read loop callbacks for the whole write timeout.
	conn := c.conn
	c.writeMu.Lock()
	c.mu.Unlock()
	defer c.writeMu.Unlock()

	return c.writeConn(conn, msg)
}

// OnMessage registers a handler invoked for every server message
func (c *WebSocketChannel) OnMessage(handler ports.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = append(c.handlers, handler)
}

// State returns the current session state
func (c *WebSocketChannel) State() core.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Close tears the connection down and stops reconnecting
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.teardownLocked()
	c.state = core.StateDisconnected

	return nil
}

// teardownLocked closes the live connection, detaches its read loop and
// cancels a scheduled reconnect. Callers hold c.mu.
func (c *WebSocketChannel) teardownLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.generation++
	}
	c.pending = nil
}

// writeLocked writes on the current connection. Callers hold c.mu.
func (c *WebSocketChannel) writeLocked(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.writeConn(c.conn, msg)
}

func (c *WebSocketChannel) writeConn(conn *websocket.Conn, msg any) error {
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *WebSocketChannel) transitionLocked(event core.SessionEvent) {
	next, err := core.Transition(c.state, event)
	if err != nil {
		c.log.Warn().
			Stringer("state", c.state).
			Stringer("event", event).
			Msg("ignoring illegal session transition")
		return
	}

	if next != c.state {
		c.log.Debug().
			Stringer("from", c.state).
			Stringer("to", next).
			Stringer("event", event).
			Msg("session state changed")
	}

	c.state = next
}

func (c *WebSocketChannel) readLoop(conn *websocket.Conn, generation int) {
	for {
		var msg core.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(generation, err)
			return
		}

		c.handleMessage(generation, msg)
	}
}

func (c *WebSocketChannel) handleMessage(generation int, msg core.ServerMessage) {
	c.mu.Lock()

	if generation != c.generation || c.closed {
		c.mu.Unlock()
		return
	}

	switch {
	case msg.IsUnauthorized():
		// Re-authenticate on the same transport and resume the step
		// that was in flight once the server re-accepts us.
		c.log.Debug().Msg("unauthorized, re-sending auth")
		c.transitionLocked(core.EventUnauthorized)
		if err := c.writeLocked(core.NewAuthMessage(c.initData)); err != nil {
			c.log.Error().Err(err).Msg("failed to re-send auth")
		}

	case msg.IsAuthAccepted():
		c.transitionLocked(core.EventAuthAccepted)
		if c.pending != nil {
			c.log.Debug().Msg("redelivering pending request")
			pending := c.pending
			switch pending.(type) {
			case core.GetProofMessage:
				c.transitionLocked(core.EventChallengeRequested)
			case core.VerifyMessage:
				c.transitionLocked(core.EventProofSubmitted)
			}
			if err := c.writeLocked(pending); err != nil {
				c.log.Error().Err(err).Msg("failed to redeliver pending request")
			}
		}

	case msg.Type == core.MessageTypeProof:
		c.pending = nil
		c.transitionLocked(core.EventChallengeReceived)

	case msg.Type == core.MessageTypeErrorProof:
		c.pending = nil
		c.transitionLocked(core.EventServerError)

	case msg.Type == core.MessageTypeVerify:
		c.pending = nil
		if msg.Status == core.StatusOK {
			c.transitionLocked(core.EventVerified)
		} else {
			c.transitionLocked(core.EventServerError)
		}

	case msg.Type == "" && msg.Code != 0:
		// Generic server error unrelated to authorization.
		c.pending = nil
		c.transitionLocked(core.EventServerError)
	}

	handlers := make([]ports.MessageHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

func (c *WebSocketChannel) handleDisconnect(generation int, err error) {
	c.mu.Lock()

	if generation != c.generation || c.closed {
		c.mu.Unlock()
		return
	}

	c.log.Warn().Err(err).Msg("connection lost")

	c.conn = nil
	c.generation++
	c.pending = nil
	c.transitionLocked(core.EventTransportClosed)
	c.scheduleReconnectLocked()

	handlers := make([]ports.MessageHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	// Subscribers waiting on this connection must observe the loss;
	// their requests will not be answered on the next one.
	for _, handler := range handlers {
		handler(core.ServerMessage{Type: core.MessageTypeConnectionLost})
	}
}

// scheduleReconnectLocked consults the reconnect policy exactly once
// for this disconnect and arms the timer. Callers hold c.mu.
func (c *WebSocketChannel) scheduleReconnectLocked() {
	if c.closed {
		return
	}

	delay := c.policy.NextDelay(c.attempt)
	c.attempt++

	c.log.Debug().Dur("delay", delay).Int("attempt", c.attempt).Msg("reconnect scheduled")

	c.timer = time.AfterFunc(delay, func() {
		if err := c.Connect(context.Background()); err != nil {
			c.log.Error().Err(err).Msg("reconnect failed")
		}
	})
}
