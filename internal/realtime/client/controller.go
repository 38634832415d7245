package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"github.com/tasklane/tasklane-api/internal/realtime"
	"github.com/tasklane/tasklane-api/internal/redact"
)

// Reconnection defaults.
const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 5
)

var (
	// ErrNotConnected is returned when sending while no connection is open.
	ErrNotConnected = errors.New("not connected")

	// ErrReconnectExhausted is the persistent error after every reconnection
	// attempt has failed.
	ErrReconnectExhausted = errors.New("reconnection attempts exhausted")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("controller already running")
)

// State is the controller's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Controller.
type Options struct {
	// URL is the task socket, e.g. ws://host/ws/tasks/42.
	URL string
	// Token is sent as the token query parameter.
	Token string

	Dialer      *websocket.Dialer
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	// OnMessage receives every decoded server frame on the read goroutine.
	OnMessage func(realtime.Outbound)
	// OnStateChange is called after every state transition.
	OnStateChange func(State)
	// OnConnected runs after each successful connection, before frames are
	// read. Use it to resynchronize from the REST API.
	OnConnected func(ctx context.Context)

	Logger *slog.Logger
}

// Controller maintains a connection to one task room.
type Controller struct {
	opts   Options
	logger *slog.Logger
	wait   func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	err     error
	running bool
	closed  bool
	cancel  context.CancelFunc

	writeMu sync.Mutex
}

// New validates opts and returns a disconnected Controller.
func New(opts Options) (*Controller, error) {
	if opts.URL == "" {
		return nil, errors.New("client: URL is required")
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		opts:   opts,
		logger: opts.Logger.With("component", "comment_client"),
		wait:   sleep,
	}, nil
}

// NewBackoff returns the reconnection schedule: base doubled per attempt,
// capped at max, stopping after attempts delays.
func NewBackoff(base, max time.Duration, attempts int) retry.Backoff {
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(max, b)
	return retry.WithMaxRetries(uint64(attempts), b)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the persistent error once the controller has failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.logger.Debug("connection state changed", "state", s.String())
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Run connects and keeps the connection alive until ctx ends, Close is
// called, either side closes normally, or reconnection is exhausted. Only
// the last case returns an error, which wraps ErrReconnectExhausted.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.closed = false
	c.err = nil
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	var (
		backoff retry.Backoff
		lastErr error
	)
	for {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err == nil {
			backoff = nil
			normal := c.serve(ctx, conn)
			if normal || ctx.Err() != nil || c.isClosed() {
				c.setState(StateDisconnected)
				return nil
			}
			lastErr = errors.New("connection closed abnormally")
		} else {
			if ctx.Err() != nil || c.isClosed() {
				c.setState(StateDisconnected)
				return nil
			}
			c.logger.Debug("dial failed", "url", c.opts.URL, "error", redact.Error(err))
			lastErr = err
		}

		if backoff == nil {
			backoff = NewBackoff(c.opts.BaseDelay, c.opts.MaxDelay, c.opts.MaxAttempts)
		}
		delay, stop := backoff.Next()
		if stop {
			failure := fmt.Errorf("%w: %w", ErrReconnectExhausted, lastErr)
			c.mu.Lock()
			c.err = failure
			c.mu.Unlock()
			c.logger.Warn("giving up on reconnection", "error", redact.Error(lastErr))
			c.setState(StateFailed)
			return failure
		}

		c.setState(StateReconnecting)
		c.logger.Info("reconnecting", "delay", delay)
		if err := c.wait(ctx, delay); err != nil {
			c.setState(StateDisconnected)
			return nil
		}
	}
}

func (c *Controller) dial(ctx context.Context) (*websocket.Conn, error) {
	url := c.opts.URL
	if c.opts.Token != "" {
		url = withQuery(url, "token", c.opts.Token)
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	return conn, nil
}

// serve reads frames until the connection ends. It reports whether the
// connection ended with a normal closure.
func (c *Controller) serve(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.setState(StateConnected)
	if c.opts.OnConnected != nil {
		c.opts.OnConnected(ctx)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			normal := websocket.IsCloseError(err, websocket.CloseNormalClosure)
			if !normal {
				c.logger.Debug("connection lost", "error", err)
			}
			return normal
		}

		msg, err := realtime.DecodeOutbound(data)
		if err != nil {
			c.logger.Warn("ignoring undecodable frame", "error", err)
			continue
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(msg)
		}
	}
}

func (c *Controller) write(msg realtime.Inbound) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if conn == nil || !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

// SendComment posts a comment to the room.
func (c *Controller) SendComment(content string) error {
	return c.write(realtime.CommentMessage{Content: content})
}

// SendTyping reports the local user's typing state.
func (c *Controller) SendTyping(isTyping bool) error {
	return c.write(realtime.TypingMessage{IsTyping: isTyping})
}

// Close ends the connection with a normal closure, which never triggers
// reconnection, and stops Run.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	var err error
	if conn != nil {
		c.writeMu.Lock()
		err = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
	}
	if cancel != nil {
		cancel()
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
