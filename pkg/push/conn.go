package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	// ErrReconnectExhausted is reported once, through OnDisconnect, when every reconnect
	// attempt failed. The connection then stays down until Connect is called again.
	ErrReconnectExhausted = errors.New("push reconnect attempts exhausted")
	// ErrClosed is returned by Connect on a closed connection.
	ErrClosed = errors.New("push connection closed")
)

// Settings configures a Conn.
type Settings struct {
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	// OnConnect is called after every successful dial, including reconnects.
	OnConnect func()
	// OnDisconnect is called when an established connection drops, and with
	// ErrReconnectExhausted when reconnecting gives up.
	OnDisconnect func(err error)
}

func DefaultSettings() *Settings {
	return &Settings{
		ReconnectAttempts: 5,
		ReconnectDelay:    1 * time.Second,
		HandshakeTimeout:  5 * time.Second,
		WriteTimeout:      5 * time.Second,
		PingInterval:      25 * time.Second,
	}
}

// Conn is the session's single push connection. It remembers the joined board and joins it
// again after every reconnect.
type Conn struct {
	url      string
	token    string
	router   *Router
	settings *Settings
	dialer   *websocket.Dialer

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *websocket.Conn
	board     string
	connected bool
	closed    bool
	done      chan struct{}

	writeMu sync.Mutex
}

// NewConn creates a connection to the push endpoint at rawURL (ws:// or wss://). Nothing is
// dialed until Connect.
func NewConn(rawURL, token string, router *Router, settings *Settings) *Conn {
	defaults := DefaultSettings()
	if settings == nil {
		settings = defaults
	}

	if settings.PingInterval <= 0 {
		settings.PingInterval = defaults.PingInterval
	}

	if settings.WriteTimeout <= 0 {
		settings.WriteTimeout = defaults.WriteTimeout
	}

	return &Conn{
		url:      rawURL,
		token:    token,
		router:   router,
		settings: settings,
		dialer:   &websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout},
	}
}

// Connect dials the server and starts reading events. The first dial is synchronous; drops
// after that are retried in the background. Connecting an open connection is a no-op.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return ErrClosed
	}

	if c.done != nil {
		c.mu.Unlock()

		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = runCtx, cancel
	c.mu.Unlock()

	ws, err := c.dial(ctx)
	if err != nil {
		cancel()

		return err
	}

	done := make(chan struct{})

	c.mu.Lock()
	c.done = done
	c.mu.Unlock()

	c.attach(ws)

	go c.run(runCtx, ws, done)

	return nil
}

// Close stops the connection for good and waits for the reader to exit.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	cancel, ws, done := c.cancel, c.ws, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if ws != nil {
		_ = ws.Close()
	}

	if done != nil {
		<-done
	}
}

// Connected reports whether a websocket is currently open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// CurrentBoard returns the joined board, or "".
func (c *Conn) CurrentBoard() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.board
}

// JoinBoard subscribes to the board's events, leaving the previously joined board. The
// board is remembered while disconnected and joined on the next connect.
func (c *Conn) JoinBoard(boardID string) error {
	c.mu.Lock()
	prev := c.board
	c.board = boardID
	ws, connected := c.ws, c.connected
	c.mu.Unlock()

	if !connected || prev == boardID {
		return nil
	}

	if prev != "" {
		if err := c.send(ws, "leave_board", prev); err != nil {
			return err
		}
	}

	return c.send(ws, "join_board", boardID)
}

// LeaveBoard unsubscribes from the board if it is the joined one.
func (c *Conn) LeaveBoard(boardID string) error {
	c.mu.Lock()
	if c.board != boardID {
		c.mu.Unlock()

		return nil
	}

	c.board = ""
	ws, connected := c.ws, c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}

	return c.send(ws, "leave_board", boardID)
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("error parsing push url: %w", err)
	}

	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("error dialing push server: %w", err)
	}

	return ws, nil
}

func (c *Conn) attach(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.connected = true
	board := c.board
	c.mu.Unlock()

	log.Info().Str("board", board).Msg("push connected")

	if board != "" {
		if err := c.send(ws, "join_board", board); err != nil {
			log.Warn().Err(err).Str("board", board).Msg("error rejoining board")
		}
	}

	if c.settings.OnConnect != nil {
		c.settings.OnConnect()
	}
}

func (c *Conn) detach(err error) {
	c.mu.Lock()
	c.ws = nil
	c.connected = false
	c.mu.Unlock()

	log.Info().Err(err).Msg("push disconnected")

	if c.settings.OnDisconnect != nil {
		c.settings.OnDisconnect(err)
	}
}

func (c *Conn) run(ctx context.Context, ws *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.done = nil
		c.mu.Unlock()

		close(done)
	}()

	for {
		err := c.serve(ctx, ws)
		_ = ws.Close()

		if ctx.Err() != nil {
			c.mu.Lock()
			c.ws = nil
			c.connected = false
			c.mu.Unlock()

			return
		}

		c.detach(err)

		ws = c.reconnect(ctx)
		if ws == nil {
			return
		}

		c.attach(ws)
	}
}

func (c *Conn) reconnect(ctx context.Context) *websocket.Conn {
	for attempt := 1; attempt <= c.settings.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.settings.ReconnectDelay):
		}

		ws, err := c.dial(ctx)
		if err == nil {
			return ws
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("push reconnect failed")
	}

	if ctx.Err() != nil {
		return nil
	}

	log.Error().Int("attempts", c.settings.ReconnectAttempts).Msg("giving up on push connection")

	if c.settings.OnDisconnect != nil {
		c.settings.OnDisconnect(ErrReconnectExhausted)
	}

	return nil
}

// serve reads frames until the socket fails or ctx ends.
func (c *Conn) serve(ctx context.Context, ws *websocket.Conn) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(c.settings.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-serveCtx.Done():
				_ = ws.Close()

				return
			case <-ticker.C:
				deadline := time.Now().Add(c.settings.WriteTimeout)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					log.Debug().Err(err).Msg("push ping failed")
				}
			}
		}
	}()

	for {
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		if messageType != websocket.TextMessage {
			continue
		}

		ev, err := Decode(message)
		if err != nil {
			log.Warn().Err(err).Msg("dropping push frame")

			continue
		}

		log.Debug().Str("event", ev.Kind.String()).Str("board", ev.Payload.BoardID).Msg("push event")

		_ = c.router.Dispatch(ev)
	}
}

func (c *Conn) send(ws *websocket.Conn, event, boardID string) error {
	data, err := encodeRoom(event, boardID)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout)); err != nil {
		return fmt.Errorf("error sending %s: %w", event, err)
	}

	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("error sending %s: %w", event, err)
	}

	return nil
}
