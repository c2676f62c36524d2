// Package sim provides an in-memory heater that speaks the BLE protocol.
//
// Heater satisfies session.Transport: request frames written to it are
// decoded and applied to a small model of the appliance, and each accepted
// write is answered with exactly one 20-byte notification. A write carrying
// the wrong passkey is answered with a zero-filled payload, or with silence
// when SilentOnBadPasskey is set, mirroring how real heaters behave.
package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/protocol"
)

const subscriptionBuffer = 8

// Heater is a simulated parking heater
type Heater struct {
	// SilentOnBadPasskey drops frames with the wrong passkey instead of
	// answering with zeros
	SilentOnBadPasskey bool

	// Latency delays each notification
	Latency time.Duration

	mu          sync.Mutex
	passkey     protocol.Passkey
	muted       bool
	writes      int
	power       bool
	running     protocol.RunningState
	mode        protocol.OperationMode
	manualLevel uint8
	autoTarget  uint8
	altitude    uint16
	decivolts   uint16
	heaterTemp  uint16
	roomTemp    uint16
	fault       protocol.HeaterError
	subs        map[chan []byte]struct{}
}

// NewHeater creates a heater that accepts pin, switched off in manual mode
func NewHeater(pin uint16) (*Heater, error) {
	passkey, err := protocol.NewPasskey(pin)
	if err != nil {
		return nil, err
	}
	return &Heater{
		passkey:     passkey,
		mode:        protocol.ModeManual,
		manualLevel: 5,
		autoTarget:  20,
		altitude:    120,
		decivolts:   126,
		heaterTemp:  18,
		roomTemp:    18,
		subs:        make(map[chan []byte]struct{}),
	}, nil
}

// SetMuted stops the heater from answering any write
func (h *Heater) SetMuted(muted bool) {
	h.mu.Lock()
	h.muted = muted
	h.mu.Unlock()
}

// SetRoomTemperature sets the reported room temperature
func (h *Heater) SetRoomTemperature(celsius uint16) {
	h.mu.Lock()
	h.roomTemp = celsius
	h.mu.Unlock()
}

// SetFault sets the error reported on the panel
func (h *Heater) SetFault(e protocol.HeaterError) {
	h.mu.Lock()
	h.fault = e
	h.mu.Unlock()
}

// Writes returns the number of frames written to the heater
func (h *Heater) Writes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes
}

// Snapshot returns the response the heater would send for a status request
func (h *Heater) Snapshot() protocol.ResponseFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.responseLocked(protocol.CodeReadStatus)
}

// WriteCharacteristic accepts a request frame
func (h *Heater) WriteCharacteristic(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes++

	req, err := protocol.DecodeRequest(data)
	if err != nil {
		// the real module drops malformed frames without a reply
		logging.Debug("Simulated heater dropped frame", zap.Error(err))
		return nil
	}
	if h.muted {
		return nil
	}

	if req.Passkey() != h.passkey {
		if !h.SilentOnBadPasskey {
			h.emitLocked(make([]byte, protocol.ResponseFrameSize))
		}
		return nil
	}

	h.applyLocked(req)
	resp := h.responseLocked(req.Code())
	h.emitLocked(protocol.EncodeResponse(&resp))
	return nil
}

// Subscribe returns a channel of notifications that is closed when ctx ends
func (h *Heater) Subscribe(ctx context.Context) (<-chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan []byte, subscriptionBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()

	return ch, nil
}

// Inject pushes an arbitrary payload to all subscribers
func (h *Heater) Inject(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitLocked(data)
}

func (h *Heater) emitLocked(data []byte) {
	if h.Latency <= 0 {
		h.deliverLocked(data)
		return
	}
	go func() {
		time.Sleep(h.Latency)
		h.mu.Lock()
		defer h.mu.Unlock()
		h.deliverLocked(data)
	}()
}

func (h *Heater) deliverLocked(data []byte) {
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
			logging.Warn("Simulated heater dropped notification, subscriber full")
		}
	}
}

// applyLocked updates the model for an accepted request. Values outside the
// documented domains are ignored, as on the real heater.
func (h *Heater) applyLocked(req protocol.RequestFrame) {
	switch req.Code() {
	case protocol.CodeReadStatus:
		h.advanceLocked()
	case protocol.CodeSetMode:
		if m := protocol.OperationMode(req.Data()); m.IsKnown() {
			h.mode = m
		}
	case protocol.CodeSetPower:
		switch {
		case req.Data() == 1 && !h.power:
			h.power = true
			h.running = protocol.StateWarmup
		case req.Data() == 0 && h.power:
			h.running = protocol.StateShuttingDown
		}
	case protocol.CodeSetLevel:
		lo, hi, _ := h.mode.LevelRange()
		if v := req.Data(); v >= lo && v <= hi {
			if h.mode == protocol.ModeAutomatic {
				h.autoTarget = v
			} else {
				h.manualLevel = v
			}
		}
	}
}

// advanceLocked moves the combustion cycle one phase per status request
func (h *Heater) advanceLocked() {
	if !h.power {
		return
	}
	switch h.running {
	case protocol.StateWarmup, protocol.StateSelfTest, protocol.StateIgnition:
		h.running++
		h.heaterTemp += 40
	case protocol.StateHeating:
		if h.heaterTemp < 200 {
			h.heaterTemp += 20
		}
	case protocol.StateShuttingDown:
		h.power = false
		h.running = protocol.StateWarmup
		h.heaterTemp = h.roomTemp
	}
}

func (h *Heater) responseLocked(code protocol.CommandCode) protocol.ResponseFrame {
	r := protocol.ResponseFrame{
		Command:          code,
		Altitude:         h.altitude,
		Mode:             uint8(h.mode),
		VoltageDecivolts: h.decivolts,
		RoomTemperature:  h.roomTemp,
		DisplayError:     uint8(h.fault),
	}
	if h.fault != protocol.ErrorNone {
		r.ErrorCode = uint8(h.fault)
	}
	if !h.power {
		return r
	}

	r.Power = uint8(protocol.PowerRunning)
	if h.fault != protocol.ErrorNone {
		r.Power = uint8(protocol.PowerError)
	}
	r.RunningState = uint8(h.running)
	r.HeaterTemperature = h.heaterTemp

	if h.mode == protocol.ModeAutomatic {
		r.TargetLevel = h.autoTarget
		r.CurrentPowerLevel = automaticLevel(h.autoTarget, h.roomTemp)
	} else {
		r.TargetLevel = h.manualLevel
	}
	return r
}

// automaticLevel picks a zero-based power level from the gap between the
// target and the room temperature
func automaticLevel(target uint8, room uint16) uint8 {
	if uint16(target) <= room {
		return 0
	}
	gap := uint16(target) - room
	if gap > 9 {
		return 9
	}
	return uint8(gap)
}
