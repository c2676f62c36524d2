package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/heaterble/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	notificationBuffer = 8
)

// ErrAlreadySubscribed is returned by a second Subscribe on the same client
var ErrAlreadySubscribed = errors.New("wsbridge: already subscribed")

// Client is a websocket connection to a bridge for a single heater
type Client struct {
	conn    *websocket.Conn
	address string

	writeMu    sync.Mutex
	subscribed atomic.Bool
	closeOnce  sync.Once
	done       chan struct{}
}

// Dial connects to the bridge at bridgeURL for the heater at address.
// http and https URLs are accepted and mapped to ws and wss.
func Dial(ctx context.Context, bridgeURL, address string) (*Client, error) {
	target, err := BridgeURL(bridgeURL, address)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: writeWait,
	}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge refused connection (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial bridge %s: %w", bridgeURL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	logging.LogConnection(address, "bridge_connected")
	return &Client{
		conn:    conn,
		address: address,
		done:    make(chan struct{}),
	}, nil
}

// BridgeURL returns the websocket URL for the heater at address
func BridgeURL(bridgeURL, address string) (string, error) {
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return "", fmt.Errorf("invalid bridge URL %q: %w", bridgeURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported bridge URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("bridge URL %q has no host", bridgeURL)
	}
	if address == "" {
		return "", errors.New("heater address is required")
	}

	q := u.Query()
	q.Set("address", address)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WriteCharacteristic sends data as a single binary message
func (c *Client) WriteCharacteristic(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Subscribe performs the subscribe handshake and returns the notification
// stream. The subscription owns the connection: when ctx ends or the bridge
// goes away the channel is closed and the connection released.
func (c *Client) Subscribe(ctx context.Context) (<-chan []byte, error) {
	if !c.subscribed.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubscribed
	}

	if err := c.writeJSON(ctx, subscribeRequest(c.address)); err != nil {
		return nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}

	if err := c.conn.SetReadDeadline(writeDeadline(ctx)); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	var ack envelope
	err := c.conn.ReadJSON(&ack)
	stop()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to read subscribe response: %w", err)
	}
	switch ack.Type {
	case typeSubscribed:
	case typeError:
		return nil, &BridgeError{Message: ack.Error}
	default:
		return nil, fmt.Errorf("unexpected bridge message %q", ack.Type)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	logging.Debug("Subscribed to notifications via bridge", zap.String("address", c.address))

	out := make(chan []byte, notificationBuffer)
	go c.readLoop(ctx, out)
	go c.pingLoop()
	return out, nil
}

// Close sends a close frame and releases the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.conn.Close()
		logging.LogConnection(c.address, "bridge_closed")
	})
	return err
}

func (c *Client) readLoop(ctx context.Context, out chan<- []byte) {
	defer close(out)
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logging.Warn("Bridge connection lost",
					zap.String("address", c.address),
					zap.Error(err),
				)
			}
			_ = c.Close()
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		case websocket.TextMessage:
			var env envelope
			if err := json.Unmarshal(data, &env); err == nil && env.Type == typeError {
				logging.Warn("Bridge reported error",
					zap.String("address", c.address),
					zap.String("error", env.Error),
				)
				continue
			}
			logging.LogRawBytes("Ignoring text message from bridge "+c.address, data)
		}
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeJSON(ctx context.Context, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// writeDeadline is the earlier of ctx's deadline and writeWait from now
func writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
