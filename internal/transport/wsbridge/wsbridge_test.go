package wsbridge

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/heaterble/internal/metrics"
	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/session"
	"github.com/muurk/heaterble/internal/transport/sim"
)

const (
	testAddress   = "AA:BB:CC:DD:EE:FF"
	brokenAddress = "00:00:00:00:00:01"
)

// brokenDevice fails every write, which makes the bridge drop the client
type brokenDevice struct {
	Device
}

func (brokenDevice) WriteCharacteristic(context.Context, []byte) error {
	return errors.New("radio unavailable")
}

func newTestBridge(t *testing.T) (*httptest.Server, *sim.Heater) {
	t.Helper()
	heater, err := sim.NewHeater(1234)
	if err != nil {
		t.Fatalf("NewHeater() error = %v", err)
	}
	srv := httptest.NewServer(NewServer(func(ctx context.Context, address string) (Device, error) {
		switch address {
		case testAddress:
			return heater, nil
		case brokenAddress:
			return brokenDevice{Device: heater}, nil
		}
		return nil, errors.New("unknown device " + address)
	}))
	t.Cleanup(srv.Close)
	return srv, heater
}

func dial(t *testing.T, srv *httptest.Server, address string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), srv.URL, address)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("notification stream closed")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
	return nil
}

func TestBridgeURL(t *testing.T) {
	tests := []struct {
		name    string
		bridge  string
		want    string
		wantErr bool
	}{
		{
			name:   "ws passes through",
			bridge: "ws://gateway.local:8765/ble",
			want:   "ws://gateway.local:8765/ble?address=AA%3ABB%3ACC%3ADD%3AEE%3AFF",
		},
		{
			name:   "http maps to ws",
			bridge: "http://10.0.0.2:8765/ble",
			want:   "ws://10.0.0.2:8765/ble?address=AA%3ABB%3ACC%3ADD%3AEE%3AFF",
		},
		{
			name:   "https maps to wss",
			bridge: "https://gateway.local/ble",
			want:   "wss://gateway.local/ble?address=AA%3ABB%3ACC%3ADD%3AEE%3AFF",
		},
		{name: "unsupported scheme", bridge: "ftp://gateway.local", wantErr: true},
		{name: "missing host", bridge: "ws:///ble", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BridgeURL(tt.bridge, testAddress)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BridgeURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BridgeURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_RoundTrip(t *testing.T) {
	srv, _ := newTestBridge(t)
	c := dial(t, srv, testAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifications, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	passkey, _ := protocol.NewPasskey(1234)
	frame := protocol.Encode(passkey, protocol.Ping{})
	if err := c.WriteCharacteristic(ctx, frame.Bytes()); err != nil {
		t.Fatalf("WriteCharacteristic() error = %v", err)
	}

	resp, err := protocol.Decode(receive(t, notifications))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if resp.Command != protocol.CodeReadStatus {
		t.Errorf("Command = %s, want %s", resp.Command, protocol.CodeReadStatus)
	}
}

func TestClient_Session(t *testing.T) {
	srv, heater := newTestBridge(t)
	c := dial(t, srv, testAddress)

	s := session.New(c, testAddress)
	if err := s.Connect(context.Background(), 1234); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer s.Disconnect()

	state, err := s.SetPower(context.Background(), true)
	if err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	if !state.Power.On() {
		t.Errorf("Power = %s, want on", state.Power)
	}
	if heater.Writes() != 2 {
		t.Errorf("heater writes = %d, want 2 (ping then power)", heater.Writes())
	}
}

func TestClient_UnknownDevice(t *testing.T) {
	srv, _ := newTestBridge(t)
	c := dial(t, srv, "11:22:33:44:55:66")

	_, err := c.Subscribe(context.Background())
	var be *BridgeError
	if !errors.As(err, &be) {
		t.Fatalf("Subscribe() error = %v, want BridgeError", err)
	}
	if !strings.Contains(be.Message, "unknown device") {
		t.Errorf("Message = %q, want unknown device", be.Message)
	}
}

func TestClient_SubscribeTwice(t *testing.T) {
	srv, _ := newTestBridge(t)
	c := dial(t, srv, testAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := c.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := c.Subscribe(ctx); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("second Subscribe() error = %v, want ErrAlreadySubscribed", err)
	}
}

func TestClient_CancelClosesStream(t *testing.T) {
	srv, _ := newTestBridge(t)
	c := dial(t, srv, testAddress)

	ctx, cancel := context.WithCancel(context.Background())
	notifications, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-notifications:
		if ok {
			t.Error("expected closed stream, got a notification")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}

	if err := c.WriteCharacteristic(context.Background(), []byte{0xAA}); err == nil {
		t.Error("WriteCharacteristic() after close should fail")
	}
}

func TestClient_BridgeGoesAway(t *testing.T) {
	srv, _ := newTestBridge(t)
	c := dial(t, srv, brokenAddress)

	notifications, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := c.WriteCharacteristic(context.Background(), []byte{0xAA, 0x55}); err != nil {
		t.Fatalf("WriteCharacteristic() error = %v", err)
	}

	select {
	case _, ok := <-notifications:
		if ok {
			t.Error("expected closed stream, got a notification")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after bridge dropped the connection")
	}
}

func TestDial_MissingAddressRejected(t *testing.T) {
	srv, _ := newTestBridge(t)

	// bypass BridgeURL so the server sees no address
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() without address should fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("response = %v, want HTTP 400", resp)
	}
}

func TestServer_RejectsWrongCharacteristic(t *testing.T) {
	srv, _ := newTestBridge(t)

	target, err := BridgeURL(srv.URL, testAddress)
	if err != nil {
		t.Fatalf("BridgeURL() error = %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	req := subscribeRequest(testAddress)
	req.Characteristic = "00002a00-0000-1000-8000-00805f9b34fb"
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var resp envelope
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if resp.Type != typeError || !strings.Contains(resp.Error, "unsupported characteristic") {
		t.Errorf("response = %+v, want unsupported characteristic error", resp)
	}
}

func TestEnvelope_CheckGATT(t *testing.T) {
	tests := []struct {
		name    string
		env     envelope
		wantErr bool
	}{
		{name: "heater service", env: subscribeRequest(testAddress)},
		{
			name:    "invalid UUID",
			env:     envelope{Service: "not-a-uuid", Characteristic: protocol.CharacteristicUUID.String()},
			wantErr: true,
		},
		{
			name:    "other service",
			env:     envelope{Service: "0000180f-0000-1000-8000-00805f9b34fb", Characteristic: protocol.CharacteristicUUID.String()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.env.checkGATT(); (err != nil) != tt.wantErr {
				t.Errorf("checkGATT() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	heater, err := sim.NewHeater(1234)
	if err != nil {
		t.Fatalf("NewHeater() error = %v", err)
	}
	m := metrics.NewBridge(prometheus.NewRegistry())
	srv := httptest.NewServer(NewServer(func(ctx context.Context, address string) (Device, error) {
		if address != testAddress {
			return nil, errors.New("unknown device")
		}
		return heater, nil
	}).SetMetrics(m))
	t.Cleanup(srv.Close)

	c := dial(t, srv, testAddress)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifications, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	passkey, _ := protocol.NewPasskey(1234)
	if err := c.WriteCharacteristic(ctx, protocol.Encode(passkey, protocol.Ping{}).Bytes()); err != nil {
		t.Fatalf("WriteCharacteristic() error = %v", err)
	}
	receive(t, notifications)

	if _, err := dial(t, srv, "11:22:33:44:55:66").Subscribe(ctx); err == nil {
		t.Fatal("Subscribe() to an unknown device should fail")
	}

	// the notification counter is bumped after the frame is on the wire
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(m.FramesTotal.WithLabelValues(metrics.DirectionNotify)) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"subscribe ok", testutil.ToFloat64(m.SubscribeTotal.WithLabelValues("ok")), 1},
		{"subscribe error", testutil.ToFloat64(m.SubscribeTotal.WithLabelValues("error")), 1},
		{"writes", testutil.ToFloat64(m.FramesTotal.WithLabelValues(metrics.DirectionWrite)), 1},
		{"notifications", testutil.ToFloat64(m.FramesTotal.WithLabelValues(metrics.DirectionNotify)), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
