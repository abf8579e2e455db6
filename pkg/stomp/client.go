package stomp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	gostomp "github.com/go-stomp/stomp/v3"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by operations that need an open session.
var ErrNotConnected = errors.New("stomp client is not connected")

// disconnectTimeout bounds the wait for the DISCONNECT receipt.
const disconnectTimeout = 2 * time.Second

// heartBeatConstraint selects the protocol versions that understand heart-beating.
var heartBeatConstraint = mustConstraint(">= 1.1")

// Dialer opens a new Conn for every connection attempt.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Handler receives the body of every MESSAGE on a subscription.
type Handler func(body []byte)

// Config tunes the client.
type Config struct {
	Host              string
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	HeartbeatOutgoing time.Duration
	HeartbeatIncoming time.Duration

	// OnConnect runs after every successful handshake. Subscriptions do not
	// survive a reconnect, so this is where they are (re)established.
	OnConnect func(c *Client)
	// OnDisconnect runs when a session that reached OnConnect ends.
	OnDisconnect func()
	// OnError runs for every error reported on a subscription, including
	// ERROR frames from the server.
	OnError func(err error)
}

// Client keeps one STOMP session alive until Deactivate is called. Framing,
// heart-beats and version negotiation are handled by go-stomp; the client
// adds the fixed-delay reconnect loop on top.
type Client struct {
	dialer Dialer
	cfg    Config
	logger zerolog.Logger

	connected atomic.Bool
	subs      cmap.ConcurrentMap[string, *gostomp.Subscription]

	mu            sync.Mutex
	conn          *gostomp.Conn
	done          <-chan struct{}
	serverVersion *semver.Version

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates an inactive client.
func NewClient(dialer Dialer, cfg Config, logger zerolog.Logger) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Client{
		dialer: dialer,
		cfg:    cfg,
		logger: logger,
		subs:   cmap.New[*gostomp.Subscription](),
	}
}

// Activate starts the connection loop in the background. It returns an error
// if the client is already active.
func (c *Client) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx != nil {
		return errors.New("stomp client is already active")
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(c.ctx)
	}()
	return nil
}

// Deactivate sends DISCONNECT when connected, closes the connection and
// stops reconnecting.
func (c *Client) Deactivate() error {
	c.mu.Lock()
	if c.ctx == nil {
		c.mu.Unlock()
		return errors.New("stomp client is not active")
	}
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.ctx, c.cancel = nil, nil
	c.mu.Unlock()
	return nil
}

// Connected reports whether a STOMP session is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// ServerVersion is the protocol version negotiated on the last handshake.
func (c *Client) ServerVersion() *semver.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

// Publish sends body to destination.
func (c *Client) Publish(destination string, body []byte, contentType string) error {
	conn, _, err := c.current()
	if err != nil {
		return err
	}
	return conn.Send(destination, contentType, body)
}

// Subscribe registers handler for destination on the current session and
// returns the subscription id.
func (c *Client) Subscribe(destination string, handler Handler) (string, error) {
	conn, done, err := c.current()
	if err != nil {
		return "", err
	}
	sub, err := conn.Subscribe(destination, gostomp.AckAuto)
	if err != nil {
		return "", err
	}
	c.subs.Set(sub.Id(), sub)

	go c.pump(sub, destination, handler, done)
	return sub.Id(), nil
}

// Unsubscribe cancels a subscription made on the current session.
func (c *Client) Unsubscribe(id string) error {
	sub, ok := c.subs.Pop(id)
	if !ok {
		return fmt.Errorf("unknown subscription %q", id)
	}
	return sub.Unsubscribe()
}

func (c *Client) current() (*gostomp.Conn, <-chan struct{}, error) {
	if !c.connected.Load() {
		return nil, nil, ErrNotConnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, nil, ErrNotConnected
	}
	return c.conn, c.done, nil
}

// pump hands messages to handler until the subscription or the session ends.
func (c *Client) pump(sub *gostomp.Subscription, destination string, handler Handler, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Err != nil {
				c.onError(destination, msg.Err)
				continue
			}
			handler(msg.Body)
		case <-done:
			return
		}
	}
}

func (c *Client) onError(destination string, err error) {
	c.logger.Error().Err(err).Str("destination", destination).Msg("STOMP subscription error")
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}

// run keeps a session open, waiting ReconnectDelay between attempts.
func (c *Client) run(ctx context.Context) {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.logger.Debug().Msg("Connection loop stopped")
			return
		}
		c.logger.Error().Err(err).Dur("retry_in", c.cfg.ReconnectDelay).Msg("STOMP connection lost")

		if c.cfg.ReconnectDelay <= 0 {
			c.logger.Warn().Msg("Reconnect disabled, giving up")
			return
		}
		select {
		case <-time.After(c.cfg.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// session performs one dial/handshake cycle and blocks until the session
// ends. It always returns a non-nil error describing why.
func (c *Client) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	transport, err := c.dialer.Dial(dialCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	s := newStream(transport)
	defer s.Close()

	conn, err := c.connect(ctx, s)
	if err != nil {
		return err
	}
	version, err := semver.NewVersion(string(conn.Version()))
	if err != nil {
		return fmt.Errorf("server version %q: %w", conn.Version(), err)
	}
	if !heartBeatConstraint.Check(version) && (c.cfg.HeartbeatOutgoing > 0 || c.cfg.HeartbeatIncoming > 0) {
		c.logger.Warn().Str("version", version.Original()).Msg("Server protocol has no heart-beating")
	}

	c.mu.Lock()
	c.conn, c.done, c.serverVersion = conn, s.Done(), version
	c.mu.Unlock()
	c.connected.Store(true)

	defer func() {
		c.connected.Store(false)
		c.subs.Clear()
		c.mu.Lock()
		c.conn, c.done = nil, nil
		c.mu.Unlock()
		if c.cfg.OnDisconnect != nil {
			c.cfg.OnDisconnect()
		}
	}()

	c.logger.Info().
		Str("version", version.Original()).
		Str("session", conn.Session()).
		Str("server", conn.Server()).
		Msg("STOMP session established")

	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect(c)
	}

	select {
	case <-s.Done():
		return fmt.Errorf("connection closed: %w", s.Err())
	case <-ctx.Done():
		c.connected.Store(false)
		c.disconnect(conn)
		return ctx.Err()
	}
}

// connect runs the CONNECT/CONNECTED handshake, giving up after
// ConnectTimeout or when ctx ends.
func (c *Client) connect(ctx context.Context, s *stream) (*gostomp.Conn, error) {
	opts := []func(*gostomp.Conn) error{
		gostomp.ConnOpt.AcceptVersion(gostomp.V12, gostomp.V11, gostomp.V10),
		gostomp.ConnOpt.HeartBeat(c.cfg.HeartbeatOutgoing, c.cfg.HeartbeatIncoming),
	}
	if c.cfg.Host != "" {
		opts = append(opts, gostomp.ConnOpt.Host(c.cfg.Host))
	}

	type result struct {
		conn *gostomp.Conn
		err  error
	}
	res := make(chan result, 1)
	go func() {
		conn, err := gostomp.Connect(s, opts...)
		res <- result{conn, err}
	}()

	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case r := <-res:
		if r.err != nil {
			return nil, fmt.Errorf("connect: %w", r.err)
		}
		return r.conn, nil
	case <-timer.C:
		s.Close()
		return nil, errors.New("connect: timed out waiting for CONNECTED")
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
}

// disconnect sends DISCONNECT and waits a bounded time for the receipt.
func (c *Client) disconnect(conn *gostomp.Conn) {
	errCh := make(chan error, 1)
	go func() { errCh <- conn.Disconnect() }()

	select {
	case err := <-errCh:
		if err != nil {
			c.logger.Debug().Err(err).Msg("DISCONNECT failed")
		}
	case <-time.After(disconnectTimeout):
		c.logger.Warn().Msg("No receipt for DISCONNECT, closing connection")
	}
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
