// Package ws owns the single push-notification socket to the backend:
// lifecycle, bounded reconnection, and fan-out of parsed messages.
package ws

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/models"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
	// StateFailed is terminal: the reconnect budget is spent and nothing
	// happens until the caller invokes Connect again.
	StateFailed State = "failed"
)

// MaxReconnectAttempts bounds automatic reconnection. After this many
// consecutive failed attempts the client stops retrying.
const MaxReconnectAttempts = 5

const defaultReconnectInterval = 3 * time.Second

// Conn is the subset of a websocket connection the client reads from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a connection to the push channel. Production uses gorilla's
// dialer; tests inject a fake transport.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// GorillaDialer dials with gorilla/websocket's default dialer.
type GorillaDialer struct{}

func (GorillaDialer) Dial(target string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Client maintains at most one active push connection per session. On an
// unexpected close it retries on a fixed interval up to MaxReconnectAttempts,
// then parks in StateFailed until Connect is called again.
type Client struct {
	log      *logrus.Logger
	dialer   Dialer
	interval time.Duration

	mu       sync.Mutex
	state    State
	target   string
	attempts int
	conn     Conn
	timer    *time.Timer
	closed   bool
	// gen invalidates read loops and timers from a previous Connect/Close.
	gen int

	stateSubs []func(State)
	notifSubs []func(*models.Notification)
}

// NewClient builds a client around the given transport. A nil dialer gets
// the gorilla one; a zero interval gets the default.
func NewClient(dialer Dialer, interval time.Duration, log *logrus.Logger) *Client {
	if dialer == nil {
		dialer = GorillaDialer{}
	}
	if interval <= 0 {
		interval = defaultReconnectInterval
	}
	return &Client{
		log:      log,
		dialer:   dialer,
		interval: interval,
		state:    StateDisconnected,
	}
}

// OnStateChange registers an observer for connection state transitions.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.stateSubs = append(c.stateSubs, fn)
	c.mu.Unlock()
}

// OnNotification registers an observer for successfully parsed messages.
func (c *Client) OnNotification(fn func(*models.Notification)) {
	c.mu.Lock()
	c.notifSubs = append(c.notifSubs, fn)
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the push connection, authenticating with token when set.
// Calling Connect again resets the reconnect budget, which is also the
// documented way out of StateFailed. Dialing happens asynchronously; watch
// OnStateChange for the outcome.
func (c *Client) Connect(rawURL, token string) error {
	target, err := buildTarget(rawURL, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = false
	c.target = target
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen)
	return nil
}

// Close tears the connection down deterministically: pending reconnect
// timers are stopped and no further callbacks fire.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.setState(StateDisconnected)
}

func buildTarget(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	target := c.target
	c.mu.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dialer.Dial(target)
	if err != nil {
		c.log.WithError(err).Warn("push channel dial failed")
		c.scheduleReconnect(gen)
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || gen != c.gen
			// A stale loop must not wipe the record of a connection a
			// newer Connect has since installed.
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.log.WithError(err).Warn("push channel closed unexpectedly")
			c.scheduleReconnect(gen)
			return
		}

		n, err := models.ParseNotification(data)
		if err != nil {
			// Malformed payloads are dropped; they never take the
			// connection down.
			c.log.WithError(err).Warn("dropping unparseable push message")
			continue
		}
		c.publish(n)
	}
}

func (c *Client) scheduleReconnect(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.attempts >= MaxReconnectAttempts {
		c.mu.Unlock()
		c.log.Error("reconnect budget exhausted, push channel failed")
		c.setState(StateFailed)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.timer = time.AfterFunc(c.interval, func() { c.dial(gen) })
	c.mu.Unlock()

	c.setState(StateError)
	c.log.WithFields(logrus.Fields{
		"attempt":      attempt,
		"max_attempts": MaxReconnectAttempts,
	}).Info("push channel reconnect scheduled")
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	subs := make([]func(State), len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func (c *Client) publish(n *models.Notification) {
	c.mu.Lock()
	subs := make([]func(*models.Notification), len(c.notifSubs))
	copy(subs, c.notifSubs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
