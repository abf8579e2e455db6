package sockjs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benmeehan/locshare/pkg/stomp"
	"github.com/gorilla/websocket"
)

// stompSubprotocols are offered on plain websocket connections.
var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

// WebSocketDialer connects straight to a websocket endpoint without SockJS
// framing, for servers that expose the raw handshake.
type WebSocketDialer struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebSocketDialer creates a dialer for endpoint, used verbatim apart from
// the http(s) to ws(s) scheme mapping.
func NewWebSocketDialer(endpoint string, handshakeTimeout time.Duration) (*WebSocketDialer, error) {
	u, err := toWebSocketURL(endpoint)
	if err != nil {
		return nil, err
	}
	return &WebSocketDialer{
		url: u.String(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
			Subprotocols:     stompSubprotocols,
		},
	}, nil
}

// Dial opens the websocket.
func (d *WebSocketDialer) Dial(ctx context.Context) (stomp.Conn, error) {
	ws, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.url, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) Write(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return closeWebSocket(c.ws)
}
