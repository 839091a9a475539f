package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// ErrAuthRejected reports that the server refused the token during the
// websocket handshake. Reconnecting cannot help until a new token is set, so
// the manager does not retry on this error.
var ErrAuthRejected = errors.New("authentication rejected")

// State represents the realtime connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Config configures the realtime connection manager.
type Config struct {
	Token                string
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	// RefreshInterval is how often tracked rooms are re-joined in the
	// background as a safety net against silently lost subscriptions.
	RefreshInterval time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 60 * time.Second
	}
}

// reconnector computes capped exponential backoff with jitter. The attempt
// counter resets once a connection has held for a minute, so a brief blip
// after a long stable stretch retries fast again.
type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts == 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

func (r *reconnector) nextDelay() time.Duration {
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

func (r *reconnector) reset() {
	r.attempt = 0
	r.connectedAt = time.Time{}
}

// Handlers holds the typed event callbacks. Nil handlers are skipped.
type Handlers struct {
	OnNewMessage          func(Message)
	OnMessageUpdated      func(Message)
	OnConversationUpdated func(Conversation)
	OnNotification        func(Notification)
	OnStatusChanged       func(StatusChangedEvent)
	OnTyping              func(TypingEvent)
	OnUserOnline          func(userID string)
	OnUserOffline         func(userID string)
	OnConnected           func()
	OnDisconnected        func(reason string)
	OnReconnecting        func(attempt int, delay time.Duration)
}

// Manager owns the websocket connection and the desired room set. Joins are
// tracked, not fire-and-forget: after every (re)connect the full tracked set
// is replayed, so a reconnect restores exactly the rooms the application
// asked for. Only the owner that called Connect may later Close it.
type Manager struct {
	baseURL  string
	config   *Config
	handlers Handlers
	store    *ConversationStore
	cache    *Cache

	mu               sync.Mutex
	conn             *websocket.Conn
	state            State
	intentionalClose bool
	cancelFn         context.CancelFunc
	recon            *reconnector

	roomMu sync.Mutex
	rooms  map[string]Envelope // tracked join commands, keyed by room identity
}

// NewManager creates a connection manager. store and cache are optional;
// when present, pushed events are folded into them before the handlers fire.
func NewManager(baseURL string, config Config, handlers Handlers, store *ConversationStore, cache *Cache) *Manager {
	config.defaults()
	return &Manager{
		baseURL:  baseURL,
		config:   &config,
		handlers: handlers,
		store:    store,
		cache:    cache,
		state:    StateDisconnected,
		recon: &reconnector{
			baseDelay:   config.ReconnectBaseDelay,
			maxDelay:    config.ReconnectMaxDelay,
			maxAttempts: config.MaxReconnectAttempts,
		},
		rooms: make(map[string]Envelope),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the websocket connection and replays the tracked room
// set. Safe to call while already connected or connecting.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.intentionalClose = false
	m.mu.Unlock()

	wsURL := strings.Replace(m.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/ws?token=" + m.config.Token

	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return ErrAuthRejected
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.cancelFn = cancel
	m.recon.markConnected()
	m.mu.Unlock()

	if m.handlers.OnConnected != nil {
		m.handlers.OnConnected()
	}

	m.replayRooms(connCtx)

	go m.readLoop(connCtx, ctx)
	go m.refreshLoop(connCtx)

	return nil
}

// Close shuts the connection down for good; no reconnect follows.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.intentionalClose = true
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.recon.reset()
	m.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// JoinUser subscribes to the caller's own user room and tracks it for
// replay after reconnects.
func (m *Manager) JoinUser(ctx context.Context, userID string) error {
	return m.trackAndSend(ctx, "user:"+userID, cmdJoinUser, map[string]string{"id": userID})
}

// JoinConversation subscribes to a conversation room.
func (m *Manager) JoinConversation(ctx context.Context, conversationID string) error {
	return m.trackAndSend(ctx, "conversation:"+conversationID, cmdJoinConversation, map[string]string{"id": conversationID})
}

// LeaveConversation unsubscribes from a conversation room and stops tracking
// it.
func (m *Manager) LeaveConversation(ctx context.Context, conversationID string) error {
	m.roomMu.Lock()
	delete(m.rooms, "conversation:"+conversationID)
	m.roomMu.Unlock()
	return m.send(ctx, cmdLeaveConversation, map[string]string{"id": conversationID})
}

// JoinRole subscribes to a role broadcast room.
func (m *Manager) JoinRole(ctx context.Context, role Role) error {
	return m.trackAndSend(ctx, "role:"+string(role), cmdJoinRole, map[string]string{"role": string(role)})
}

// SendTyping relays typing state into a joined conversation.
func (m *Manager) SendTyping(ctx context.Context, conversationID string, isTyping bool) error {
	return m.send(ctx, cmdTyping, TypingEvent{ConversationID: conversationID, IsTyping: isTyping})
}

// TrackedRooms returns the rooms that will be re-joined after a reconnect.
func (m *Manager) TrackedRooms() []string {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()
	rooms := make([]string, 0, len(m.rooms))
	for room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) trackAndSend(ctx context.Context, room, cmdType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.roomMu.Lock()
	m.rooms[room] = Envelope{Type: cmdType, Payload: raw}
	m.roomMu.Unlock()
	return m.send(ctx, cmdType, payload)
}

func (m *Manager) send(ctx context.Context, cmdType string, payload interface{}) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Envelope{Type: cmdType, Payload: raw})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// replayRooms re-sends every tracked join command on the fresh connection.
func (m *Manager) replayRooms(ctx context.Context) {
	m.roomMu.Lock()
	cmds := make([]Envelope, 0, len(m.rooms))
	for _, cmd := range m.rooms {
		cmds = append(cmds, cmd)
	}
	m.roomMu.Unlock()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	for _, cmd := range cmds {
		data, err := json.Marshal(cmd)
		if err != nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}

// readLoop reads until the connection drops. parent outlives the connection
// context so reconnect attempts are not cut short when the dead connection's
// context is torn down.
func (m *Manager) readLoop(ctx, parent context.Context) {
	for {
		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			m.mu.Lock()
			if m.intentionalClose {
				m.mu.Unlock()
				return
			}
			m.state = StateDisconnected
			m.conn = nil
			// Tear down this connection's context so its refresh loop
			// exits; the next Connect starts a fresh one.
			if m.cancelFn != nil {
				m.cancelFn()
				m.cancelFn = nil
			}
			retry := m.config.AutoReconnect && m.recon.shouldReconnect()
			m.mu.Unlock()

			if m.handlers.OnDisconnected != nil {
				m.handlers.OnDisconnected(err.Error())
			}

			// A policy-violation close means the session itself was
			// invalidated; retrying with the same token is pointless.
			if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				return
			}

			if retry {
				m.scheduleReconnect(parent)
			}
			return
		}

		var env Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		m.dispatch(env)
	}
}

// dispatch folds the event into the store and cache, then invokes the typed
// handler.
func (m *Manager) dispatch(env Envelope) {
	switch env.Type {
	case EventNewMessage, EventMessageUpdated:
		var msg Message
		if json.Unmarshal(env.Payload, &msg) != nil {
			return
		}
		if m.store != nil {
			m.store.ApplyMessage(msg)
		}
		if m.cache != nil {
			m.cache.InvalidateConversation(msg.ConversationID)
		}
		if env.Type == EventNewMessage && m.handlers.OnNewMessage != nil {
			m.handlers.OnNewMessage(msg)
		}
		if env.Type == EventMessageUpdated && m.handlers.OnMessageUpdated != nil {
			m.handlers.OnMessageUpdated(msg)
		}

	case EventConversationUpdated:
		var conv Conversation
		if json.Unmarshal(env.Payload, &conv) != nil {
			return
		}
		if m.store != nil {
			m.store.ApplyConversation(conv)
		}
		if m.handlers.OnConversationUpdated != nil {
			m.handlers.OnConversationUpdated(conv)
		}

	case EventSystemNotification:
		var n Notification
		if json.Unmarshal(env.Payload, &n) != nil {
			return
		}
		if m.handlers.OnNotification != nil {
			m.handlers.OnNotification(n)
		}

	case EventStatusChanged:
		var e StatusChangedEvent
		if json.Unmarshal(env.Payload, &e) != nil {
			return
		}
		if m.handlers.OnStatusChanged != nil {
			m.handlers.OnStatusChanged(e)
		}

	case EventTyping:
		var e TypingEvent
		if json.Unmarshal(env.Payload, &e) != nil {
			return
		}
		if m.handlers.OnTyping != nil {
			m.handlers.OnTyping(e)
		}

	case EventUserOnline:
		var userID string
		if json.Unmarshal(env.Payload, &userID) != nil {
			return
		}
		if m.handlers.OnUserOnline != nil {
			m.handlers.OnUserOnline(userID)
		}

	case EventUserOffline:
		var userID string
		if json.Unmarshal(env.Payload, &userID) != nil {
			return
		}
		if m.handlers.OnUserOffline != nil {
			m.handlers.OnUserOffline(userID)
		}
	}
}

// refreshLoop periodically replays the tracked rooms. Joins are idempotent
// server-side, so the refresh only matters when a subscription was lost
// without the connection dropping.
func (m *Manager) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			connected := m.state == StateConnected
			m.mu.Unlock()
			if connected {
				m.replayRooms(ctx)
			}
		}
	}
}

func (m *Manager) scheduleReconnect(ctx context.Context) {
	m.mu.Lock()
	delay := m.recon.nextDelay()
	attempt := m.recon.attempt
	m.state = StateReconnecting
	m.mu.Unlock()

	if m.handlers.OnReconnecting != nil {
		m.handlers.OnReconnecting(attempt, delay)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := m.Connect(ctx); err != nil {
		if errors.Is(err, ErrAuthRejected) {
			m.mu.Lock()
			m.state = StateDisconnected
			m.mu.Unlock()
			return
		}
		m.mu.Lock()
		retry := m.config.AutoReconnect && m.recon.shouldReconnect()
		m.mu.Unlock()
		if retry {
			m.scheduleReconnect(ctx)
		} else {
			m.mu.Lock()
			m.state = StateDisconnected
			m.mu.Unlock()
		}
	}
}
