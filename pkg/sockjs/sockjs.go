package sockjs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	http_utils "github.com/benmeehan/locshare/pkg/httpUtils"
	"github.com/benmeehan/locshare/pkg/stomp"
	"github.com/gorilla/websocket"
)

// SockJS frame types sent by the server.
const (
	frameOpen      = 'o'
	frameHeartbeat = 'h'
	frameArray     = 'a'
	frameMessage   = 'm'
	frameClose     = 'c'
)

// CloseError reports a SockJS close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("sockjs session closed: %d %s", e.Code, e.Reason)
}

// Info is the server description returned by <endpoint>/info.
type Info struct {
	WebSocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      int64    `json:"entropy"`
}

// ErrWebSocketDisabled is returned when the server does not offer the
// websocket transport.
var ErrWebSocketDisabled = errors.New("sockjs server has the websocket transport disabled")

// Dialer opens SockJS sessions over the websocket transport.
type Dialer struct {
	endpoint   string
	dialer     *websocket.Dialer
	httpClient *http.Client
}

// NewDialer creates a Dialer for a SockJS endpoint such as
// http://host:8080/ws-location.
func NewDialer(endpoint string, handshakeTimeout time.Duration) (*Dialer, error) {
	if _, err := toWebSocketURL(endpoint); err != nil {
		return nil, err
	}
	return &Dialer{
		endpoint:   endpoint,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		httpClient: &http.Client{Timeout: handshakeTimeout},
	}, nil
}

// Info fetches the server description.
func (d *Dialer) Info(ctx context.Context) (Info, error) {
	var info Info
	target, err := infoURL(d.endpoint, time.Now())
	if err != nil {
		return info, err
	}
	err = http_utils.GetJSON(ctx, d.httpClient, target, &info)
	return info, err
}

// Dial checks the server info, connects and waits for the SockJS open frame.
func (d *Dialer) Dial(ctx context.Context) (stomp.Conn, error) {
	info, err := d.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("sockjs info: %w", err)
	}
	if !info.WebSocket {
		return nil, ErrWebSocketDisabled
	}

	target, err := sessionURL(d.endpoint)
	if err != nil {
		return nil, err
	}
	ws, _, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("sockjs dial %s: %w", target, err)
	}

	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("sockjs open: %w", err)
	}
	if len(data) == 0 || data[0] != frameOpen {
		ws.Close()
		return nil, fmt.Errorf("sockjs open: unexpected frame %q", data)
	}
	return &Conn{ws: ws}, nil
}

// Conn unwraps SockJS framing so each Read returns one application message.
type Conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	pending []string
}

// Read returns the next queued message, reading frames until one arrives.
func (c *Conn) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.pending) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		msgs, err := decodeFrame(data)
		if err != nil {
			return nil, err
		}
		c.pending = msgs
	}
	msg := c.pending[0]
	c.pending = c.pending[1:]
	return []byte(msg), nil
}

// Write sends data as a single-element SockJS message array.
func (c *Conn) Write(data []byte) error {
	payload, err := json.Marshal([]string{string(data)})
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying websocket.
func (c *Conn) Close() error {
	return closeWebSocket(c.ws)
}

// decodeFrame returns the messages carried by one SockJS frame. Open and
// heart-beat frames carry none.
func decodeFrame(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("empty sockjs frame")
	}
	switch data[0] {
	case frameOpen, frameHeartbeat:
		return nil, nil
	case frameArray:
		var msgs []string
		if err := json.Unmarshal(data[1:], &msgs); err != nil {
			return nil, fmt.Errorf("sockjs array frame: %w", err)
		}
		return msgs, nil
	case frameMessage:
		var msg string
		if err := json.Unmarshal(data[1:], &msg); err != nil {
			return nil, fmt.Errorf("sockjs message frame: %w", err)
		}
		return []string{msg}, nil
	case frameClose:
		var reason []json.RawMessage
		closeErr := &CloseError{}
		if err := json.Unmarshal(data[1:], &reason); err == nil && len(reason) == 2 {
			json.Unmarshal(reason[0], &closeErr.Code)
			json.Unmarshal(reason[1], &closeErr.Reason)
		}
		return nil, closeErr
	default:
		return nil, fmt.Errorf("unknown sockjs frame type %q", data[0])
	}
}

func closeWebSocket(ws *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// The peer may already be gone; the close frame is best effort
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return ws.Close()
}
