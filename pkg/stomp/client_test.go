package stomp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(f *frame.Frame) []byte {
	var buf bytes.Buffer
	frame.NewWriter(&buf).Write(f)
	return buf.Bytes()
}

// pipeConn is an in-memory Conn playing the server side. Frames written by
// the client show up on sent; messages pushed to inbox are read by the
// client. DISCONNECT receipts are answered automatically.
type pipeConn struct {
	inbox  chan []byte
	sent   chan *frame.Frame
	closed chan struct{}
	once   sync.Once
	writes atomic.Int32
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		inbox:  make(chan []byte, 16),
		sent:   make(chan *frame.Frame, 16),
		closed: make(chan struct{}),
	}
}

func (p *pipeConn) Read() ([]byte, error) {
	select {
	case data := <-p.inbox:
		return data, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeConn) Write(data []byte) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	p.writes.Add(1)

	r := frame.NewReader(bytes.NewReader(data))
	for {
		f, err := r.Read()
		if err != nil {
			return nil
		}
		if f == nil {
			continue // heart-beat
		}
		if f.Command == "DISCONNECT" {
			if receipt := f.Header.Get("receipt"); receipt != "" {
				p.push(frame.New("RECEIPT", "receipt-id", receipt))
			}
		}
		select {
		case p.sent <- f:
		default:
		}
	}
}

func (p *pipeConn) push(f *frame.Frame) {
	select {
	case p.inbox <- encode(f):
	default:
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	errs  []error
	dials atomic.Int32
	ready chan *pipeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{ready: make(chan *pipeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	c := newPipeConn()
	d.ready <- c
	return c, nil
}

func expectFrame(t *testing.T, c *pipeConn, commands ...string) *frame.Frame {
	t.Helper()
	select {
	case f := <-c.sent:
		require.Contains(t, commands, f.Command)
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %v", commands)
		return nil
	}
}

func nextConn(t *testing.T, d *fakeDialer) *pipeConn {
	t.Helper()
	select {
	case c := <-d.ready:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("client never dialed")
		return nil
	}
}

func acceptConnect(t *testing.T, d *fakeDialer, heartBeat string) *pipeConn {
	t.Helper()
	c := nextConn(t, d)
	connect := expectFrame(t, c, "CONNECT", "STOMP")
	assert.Contains(t, connect.Header.Get("accept-version"), "1.2")
	c.push(frame.New("CONNECTED", "version", "1.2", "heart-beat", heartBeat))
	return c
}

func TestClient_SubscribeAndReceive(t *testing.T) {
	d := newFakeDialer()
	received := make(chan []byte, 1)
	client := NewClient(d, Config{
		ReconnectDelay: 10 * time.Millisecond,
		OnConnect: func(c *Client) {
			_, err := c.Subscribe("/topic/locations", func(body []byte) { received <- body })
			assert.NoError(t, err)
		},
	}, zerolog.Nop())

	require.NoError(t, client.Activate())
	conn := acceptConnect(t, d, "0,0")

	sub := expectFrame(t, conn, "SUBSCRIBE")
	assert.Equal(t, "/topic/locations", sub.Header.Get("destination"))
	assert.True(t, client.Connected())
	assert.Equal(t, "1.2.0", client.ServerVersion().String())

	msg := frame.New("MESSAGE", "subscription", sub.Header.Get("id"), "destination", "/topic/locations", "message-id", "1")
	msg.Body = []byte("[]")
	conn.push(msg)

	select {
	case body := <-received:
		assert.Equal(t, "[]", string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("message not dispatched")
	}

	require.NoError(t, client.Deactivate())
	expectFrame(t, conn, "DISCONNECT")
	assert.False(t, client.Connected())
}

func TestClient_PublishRequiresConnection(t *testing.T) {
	client := NewClient(newFakeDialer(), Config{}, zerolog.Nop())

	err := client.Publish("/app/update-location", []byte("{}"), "application/json")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.Subscribe("/topic/locations", func([]byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_Publish(t *testing.T) {
	d := newFakeDialer()
	connected := make(chan struct{}, 1)
	client := NewClient(d, Config{OnConnect: func(*Client) { connected <- struct{}{} }}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()
	conn := acceptConnect(t, d, "0,0")
	<-connected

	require.NoError(t, client.Publish("/app/update-location", []byte(`{"userId":"u"}`), "application/json"))
	send := expectFrame(t, conn, "SEND")
	assert.Equal(t, "/app/update-location", send.Header.Get("destination"))
	assert.Equal(t, "application/json", send.Header.Get("content-type"))
	assert.Equal(t, `{"userId":"u"}`, string(send.Body))
}

func TestClient_FrameSplitAcrossMessages(t *testing.T) {
	d := newFakeDialer()
	received := make(chan []byte, 1)
	client := NewClient(d, Config{OnConnect: func(c *Client) {
		c.Subscribe("/topic/locations", func(body []byte) { received <- body })
	}}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	conn := acceptConnect(t, d, "0,0")
	sub := expectFrame(t, conn, "SUBSCRIBE")

	msg := frame.New("MESSAGE", "subscription", sub.Header.Get("id"), "destination", "/topic/locations", "message-id", "7")
	msg.Body = []byte(`[{"userId":"user_abc"}]`)
	data := encode(msg)
	half := len(data) / 2
	conn.inbox <- data[:half]
	conn.inbox <- data[half:]

	select {
	case body := <-received:
		assert.Equal(t, `[{"userId":"user_abc"}]`, string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("message not dispatched")
	}
	assert.True(t, client.Connected())
}

func TestClient_ReconnectsAfterDialFailure(t *testing.T) {
	d := newFakeDialer()
	d.errs = []error{errors.New("connection refused"), errors.New("connection refused")}
	client := NewClient(d, Config{ReconnectDelay: 5 * time.Millisecond}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	acceptConnect(t, d, "0,0")
	assert.Eventually(t, client.Connected, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), d.dials.Load())
}

func TestClient_ReconnectsAfterConnectionLoss(t *testing.T) {
	d := newFakeDialer()
	var connects, disconnects atomic.Int32
	client := NewClient(d, Config{
		ReconnectDelay: 5 * time.Millisecond,
		OnConnect:      func(*Client) { connects.Add(1) },
		OnDisconnect:   func() { disconnects.Add(1) },
	}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	first := acceptConnect(t, d, "0,0")
	assert.Eventually(t, client.Connected, time.Second, 5*time.Millisecond)
	first.Close()

	acceptConnect(t, d, "0,0")
	assert.Eventually(t, func() bool { return connects.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), disconnects.Load())
	assert.True(t, client.Connected())
}

func TestClient_ServerRejectsConnect(t *testing.T) {
	d := newFakeDialer()
	var connects atomic.Int32
	client := NewClient(d, Config{
		ReconnectDelay: 5 * time.Millisecond,
		OnConnect:      func(*Client) { connects.Add(1) },
	}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	rejected := nextConn(t, d)
	expectFrame(t, rejected, "CONNECT", "STOMP")
	rejected.push(frame.New("ERROR", "message", "bad login"))

	acceptConnect(t, d, "0,0")
	assert.Eventually(t, func() bool { return connects.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestClient_ConnectTimeout(t *testing.T) {
	d := newFakeDialer()
	client := NewClient(d, Config{ReconnectDelay: 5 * time.Millisecond, ConnectTimeout: 200 * time.Millisecond}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	// The first server never answers CONNECT
	silent := nextConn(t, d)
	select {
	case <-silent.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("silent connection was not closed")
	}

	acceptConnect(t, d, "0,0")
	assert.Eventually(t, client.Connected, time.Second, 5*time.Millisecond)
}

func TestClient_SendsHeartBeats(t *testing.T) {
	d := newFakeDialer()
	client := NewClient(d, Config{HeartbeatOutgoing: 10 * time.Millisecond}, zerolog.Nop())

	require.NoError(t, client.Activate())
	defer client.Deactivate()

	conn := acceptConnect(t, d, "0,10")
	// Heart-beats decode to no frame, so count raw writes instead
	assert.Eventually(t, func() bool { return conn.writes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestClient_ActivateTwice(t *testing.T) {
	client := NewClient(newFakeDialer(), Config{}, zerolog.Nop())

	require.NoError(t, client.Activate())
	assert.Error(t, client.Activate())
	require.NoError(t, client.Deactivate())
	assert.Error(t, client.Deactivate())
}
