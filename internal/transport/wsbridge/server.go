package wsbridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/metrics"
)

// Device is the heater side of the bridge
type Device interface {
	WriteCharacteristic(ctx context.Context, data []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// OpenFunc resolves a BLE address to a device
type OpenFunc func(ctx context.Context, address string) (Device, error)

// Server accepts websocket clients and relays their GATT traffic to devices
type Server struct {
	open     OpenFunc
	upgrader websocket.Upgrader
	metrics  *metrics.Bridge
}

// NewServer creates a bridge server backed by open
func NewServer(open OpenFunc) *Server {
	return &Server{
		open: open,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetMetrics records relayed traffic in m
func (s *Server) SetMetrics(m *metrics.Bridge) *Server {
	s.metrics = m
	return s
}

// ServeHTTP upgrades the request and relays until either side closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address parameter", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remote := r.RemoteAddr
	logging.LogConnection(remote, "bridge_client_connected")
	s.metrics.ClientConnected()
	defer func() {
		_ = conn.Close()
		s.metrics.ClientClosed()
		logging.LogConnection(remote, "bridge_client_closed")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := &peer{conn: conn, remote: remote, metrics: s.metrics}
	if err := s.relay(ctx, p, address); err != nil {
		logging.Info("Bridge session ended",
			zap.String("remote_addr", remote),
			zap.String("address", address),
			zap.Error(err),
		)
	}
}

func (s *Server) relay(ctx context.Context, p *peer, address string) error {
	conn := p.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	var req envelope
	if err := conn.ReadJSON(&req); err != nil {
		return err
	}
	if req.Type != typeSubscribe {
		return p.fail("expected subscribe request, got " + req.Type)
	}
	if err := req.checkGATT(); err != nil {
		return p.fail(err.Error())
	}

	dev, err := s.open(ctx, address)
	if err != nil {
		s.metrics.Subscribed(false)
		return p.fail(err.Error())
	}
	notifications, err := dev.Subscribe(ctx)
	if err != nil {
		s.metrics.Subscribed(false)
		return p.fail("subscribe failed: " + err.Error())
	}
	s.metrics.Subscribed(true)
	if err := p.writeJSON(envelope{Type: typeSubscribed, Address: address}); err != nil {
		return err
	}
	logging.Info("Bridge client subscribed",
		zap.String("remote_addr", p.remote),
		zap.String("address", address),
	)

	go p.forward(notifications)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.BinaryMessage {
			logging.Debug("Ignoring text message from bridge client",
				zap.String("remote_addr", p.remote),
				zap.String("content", string(data)),
			)
			continue
		}
		logging.LogFrame(address, "bridge_write", data)
		s.metrics.Frame(metrics.DirectionWrite)
		if err := dev.WriteCharacteristic(ctx, data); err != nil {
			s.metrics.WriteFailed()
			return p.fail("write failed: " + err.Error())
		}
	}
}

// peer serialises writes to one client connection
type peer struct {
	conn    *websocket.Conn
	remote  string
	metrics *metrics.Bridge
	mu      sync.Mutex
}

func (p *peer) forward(notifications <-chan []byte) {
	for data := range notifications {
		p.mu.Lock()
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := p.conn.WriteMessage(websocket.BinaryMessage, data)
		p.mu.Unlock()
		if err != nil {
			logging.Warn("Failed to forward notification",
				zap.String("remote_addr", p.remote),
				zap.Error(err),
			)
			return
		}
		p.metrics.Frame(metrics.DirectionNotify)
	}
}

func (p *peer) writeJSON(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

// fail reports msg to the client in an error envelope and returns it
func (p *peer) fail(msg string) error {
	_ = p.writeJSON(envelope{Type: typeError, Error: msg})
	return errors.New(msg)
}
