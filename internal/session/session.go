package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/protocol"
)

// DefaultResponseTimeout bounds the wait for a notification after a write
const DefaultResponseTimeout = 5 * time.Second

// State is the session's position in its lifecycle
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateReady
	StateAwaitingResponse
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// request is the single in-flight command
type request struct {
	cmd      protocol.Command
	issuedAt time.Time
	gen      uint64 // generation when the request was armed
	auth     bool   // opening ping
	prev     State  // state to return to on a recoverable failure
	timer    *time.Timer
	done     chan result
}

type result struct {
	state protocol.DeviceState
	err   error
}

// Session drives one heater: it embeds the passkey in every frame, allows
// a single request in flight, and pairs each notification with that request.
//
// All transitions happen under mu and bump generation, so a timer or
// notification that belongs to an earlier request is recognised and dropped.
type Session struct {
	transport Transport
	address   string

	mu         sync.Mutex
	timeout    time.Duration
	state      State
	generation uint64
	passkey    protocol.Passkey
	current    *protocol.DeviceState
	modeHint   protocol.OperationMode // last mode this session set successfully
	pending    *request
	link       uint64 // identifies the live notification subscription
	cancelSub  context.CancelFunc
}

// New creates a disconnected session. address is only used for logging.
func New(transport Transport, address string) *Session {
	return &Session{
		transport: transport,
		address:   address,
		timeout:   DefaultResponseTimeout,
	}
}

// SetTimeout sets the response timeout for subsequent requests. A
// non-positive timeout restores DefaultResponseTimeout.
func (s *Session) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	s.mu.Lock()
	s.timeout = timeout
	s.mu.Unlock()
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentState returns the last decoded heater snapshot without blocking on I/O
func (s *Session) CurrentState() (protocol.DeviceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return protocol.DeviceState{}, false
	}
	return *s.current, true
}

// Connect subscribes to notifications and stores the passkey. The heater
// offers no acknowledgement, so the session stays Authenticating until the
// first request is answered; any command issued from there is preceded by
// an authentication Ping.
func (s *Session) Connect(ctx context.Context, pin uint16) error {
	passkey, err := protocol.NewPasskey(pin)
	if err != nil {
		return &Error{Kind: KindInvalidCommand, Message: "invalid passkey", Err: err}
	}

	if s.State() != StateDisconnected {
		return &Error{Kind: KindBusy, Message: "session already connected"}
	}

	// The subscription outlives ctx; ctx only bounds its setup.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	notifications, err := s.transport.Subscribe(subCtx)
	stop()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		cancel()
		return &Error{Kind: KindTransport, Message: "failed to subscribe to notifications", Err: err}
	}

	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		cancel()
		return &Error{Kind: KindBusy, Message: "session already connected"}
	}
	s.link++
	link := s.link
	s.cancelSub = cancel
	s.passkey = passkey
	s.current = nil
	s.modeHint = 0
	s.transitionLocked(StateAuthenticating)
	s.mu.Unlock()

	logging.LogConnection(s.address, "subscribed")
	go s.readLoop(link, notifications)
	return nil
}

// Disconnect drops the subscription and the last known state. A request in
// flight fails with KindNotConnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.teardownLocked(&Error{Kind: KindNotConnected, Message: "session disconnected"})
	logging.LogConnection(s.address, "disconnected")
}

// Ping requests a status notification
func (s *Session) Ping(ctx context.Context) (protocol.DeviceState, error) {
	return s.Issue(ctx, protocol.Ping{})
}

// SetOperationMode switches between manual and automatic operation
func (s *Session) SetOperationMode(ctx context.Context, mode protocol.OperationMode) (protocol.DeviceState, error) {
	return s.Issue(ctx, protocol.SetMode{Mode: mode})
}

// SetPower turns the heater on or off
func (s *Session) SetPower(ctx context.Context, on bool) (protocol.DeviceState, error) {
	return s.Issue(ctx, protocol.SetPower{On: on})
}

// SetLevel sets the level for the current mode: a power level in manual
// mode, a target temperature in automatic mode
func (s *Session) SetLevel(ctx context.Context, value uint8) (protocol.DeviceState, error) {
	return s.Issue(ctx, protocol.SetLevel{Value: value})
}

// SetTargetTemperature switches to automatic mode if needed and sets the
// target room temperature
func (s *Session) SetTargetTemperature(ctx context.Context, celsius uint8) (protocol.DeviceState, error) {
	return s.setModeAndLevel(ctx, protocol.ModeAutomatic, celsius)
}

// SetTargetPowerLevel switches to manual mode if needed and sets the power level
func (s *Session) SetTargetPowerLevel(ctx context.Context, level uint8) (protocol.DeviceState, error) {
	return s.setModeAndLevel(ctx, protocol.ModeManual, level)
}

func (s *Session) setModeAndLevel(ctx context.Context, mode protocol.OperationMode, value uint8) (protocol.DeviceState, error) {
	level := protocol.SetLevel{Value: value}
	if err := protocol.Validate(level, mode); err != nil {
		return protocol.DeviceState{}, &Error{Kind: KindInvalidCommand, Message: "level rejected", Command: level, Err: err}
	}

	if s.knownMode() != mode {
		if _, err := s.SetOperationMode(ctx, mode); err != nil {
			return protocol.DeviceState{}, err
		}
	}
	return s.Issue(ctx, level)
}

// Issue validates cmd, writes it and waits for the matching notification.
// Only one request may be in flight; a second caller gets KindBusy.
func (s *Session) Issue(ctx context.Context, cmd protocol.Command) (protocol.DeviceState, error) {
	if s.State() == StateAuthenticating {
		if _, isPing := cmd.(protocol.Ping); !isPing {
			if _, err := s.Issue(ctx, protocol.Ping{}); err != nil {
				return protocol.DeviceState{}, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return protocol.DeviceState{}, &Error{
			Kind:      KindTimeout,
			Message:   "request abandoned",
			Command:   cmd,
			Err:       err,
			Retryable: true,
		}
	}

	s.mu.Lock()
	req, frame, err := s.beginLocked(cmd)
	s.mu.Unlock()
	if err != nil {
		return protocol.DeviceState{}, err
	}

	logging.LogFrame(s.address, "tx", frame.Bytes())
	if err := s.transport.WriteCharacteristic(ctx, frame.Bytes()); err != nil {
		s.mu.Lock()
		if s.isPendingLocked(req) {
			if isContextErr(err) {
				s.abandonLocked(req, err)
			} else {
				s.teardownLocked(&Error{Kind: KindTransport, Message: "write failed", Command: cmd, Err: err})
			}
		}
		s.mu.Unlock()
	}

	select {
	case r := <-req.done:
		return r.state, r.err
	case <-ctx.Done():
		s.mu.Lock()
		if s.isPendingLocked(req) {
			s.abandonLocked(req, ctx.Err())
		}
		s.mu.Unlock()
		r := <-req.done
		return r.state, r.err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// abandonLocked completes a request whose caller context ended. An expired
// deadline on the opening ping counts as no answer from the heater; any
// other abandonment is a retryable Timeout that restores the prior state.
func (s *Session) abandonLocked(req *request, cause error) {
	if req.auth && errors.Is(cause, context.DeadlineExceeded) {
		s.failAuthLocked(req, cause)
		return
	}
	s.transitionLocked(req.prev)
	s.resolveLocked(req, result{err: &Error{
		Kind:      KindTimeout,
		Message:   "request abandoned",
		Command:   req.cmd,
		Err:       cause,
		Retryable: true,
	}})
}

// failAuthLocked tears the session down after an unanswered opening ping
func (s *Session) failAuthLocked(req *request, cause error) {
	elapsed := time.Since(req.issuedAt)
	logging.Warn("No response to authentication ping",
		zap.String("address", s.address),
		zap.Duration("elapsed", elapsed),
	)
	s.teardownLocked(&Error{
		Kind:    KindAuthenticationFailed,
		Message: fmt.Sprintf("no response to authentication ping after %s", elapsed.Round(time.Millisecond)),
		Command: req.cmd,
		Err:     cause,
	})
}

// beginLocked moves the session to AwaitingResponse and arms the timer
func (s *Session) beginLocked(cmd protocol.Command) (*request, protocol.RequestFrame, error) {
	switch s.state {
	case StateDisconnected:
		return nil, protocol.RequestFrame{}, &Error{Kind: KindNotConnected, Message: "not connected", Command: cmd}
	case StateAwaitingResponse:
		return nil, protocol.RequestFrame{}, &Error{
			Kind:      KindBusy,
			Message:   fmt.Sprintf("%s still awaiting response", s.pending.cmd),
			Command:   cmd,
			Retryable: true,
		}
	}

	if err := protocol.Validate(cmd, s.knownModeLocked()); err != nil {
		return nil, protocol.RequestFrame{}, &Error{Kind: KindInvalidCommand, Message: "command rejected", Command: cmd, Err: err}
	}

	frame := protocol.Encode(s.passkey, cmd)
	req := &request{
		cmd:      cmd,
		issuedAt: time.Now(),
		auth:     s.state == StateAuthenticating,
		prev:     s.state,
		done:     make(chan result, 1),
	}
	s.transitionLocked(StateAwaitingResponse)
	req.gen = s.generation
	s.pending = req
	req.timer = time.AfterFunc(s.timeout, func() { s.expire(req) })

	return req, frame, nil
}

func (s *Session) knownMode() protocol.OperationMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.knownModeLocked()
}

// knownModeLocked prefers the mode the heater reported, falling back to the
// last mode set by this session (some heaters report 0 while off)
func (s *Session) knownModeLocked() protocol.OperationMode {
	if s.current != nil && s.current.Mode.IsKnown() {
		return s.current.Mode
	}
	return s.modeHint
}

func (s *Session) isPendingLocked(req *request) bool {
	return s.state == StateAwaitingResponse && s.pending == req && s.generation == req.gen
}

// expire fires when no notification arrived within the timeout
func (s *Session) expire(req *request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isPendingLocked(req) {
		return
	}

	if req.auth {
		s.failAuthLocked(req, nil)
		return
	}

	elapsed := time.Since(req.issuedAt)
	s.transitionLocked(req.prev)
	s.resolveLocked(req, result{err: &Error{
		Kind:      KindTimeout,
		Message:   fmt.Sprintf("no response after %s", elapsed.Round(time.Millisecond)),
		Command:   req.cmd,
		Retryable: true,
	}})
}

func (s *Session) readLoop(link uint64, notifications <-chan []byte) {
	for data := range notifications {
		s.handleNotification(link, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if link != s.link || s.state == StateDisconnected {
		return
	}
	logging.Error("Notification stream closed", zap.String("address", s.address))
	s.teardownLocked(&Error{Kind: KindTransport, Message: "link lost", Err: ErrNotificationsClosed})
}

func (s *Session) handleNotification(link uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link != s.link {
		return
	}

	logging.LogFrame(s.address, "rx", data)

	req := s.pending
	if s.state != StateAwaitingResponse || req == nil {
		logging.Warn("Unsolicited notification discarded",
			zap.String("address", s.address),
			zap.String("state", s.state.String()),
			zap.Binary("data", data),
		)
		return
	}

	frame, err := protocol.Decode(data)
	if err != nil {
		if req.auth && protocol.IsUnauthenticated(err) {
			s.teardownLocked(&Error{Kind: KindAuthenticationFailed, Message: "heater rejected passkey", Command: req.cmd, Err: err})
			return
		}
		logging.Warn("Undecodable notification",
			zap.String("address", s.address),
			zap.Stringer("command", req.cmd),
			zap.Error(err),
		)
		s.transitionLocked(req.prev)
		s.resolveLocked(req, result{err: &Error{
			Kind:      KindProtocol,
			Message:   "invalid notification",
			Command:   req.cmd,
			Err:       err,
			Retryable: true,
		}})
		return
	}

	if frame.Command != req.cmd.Code() {
		// the heater may coalesce status pushes; the state is still current
		logging.Warn("Echoed command does not match request",
			zap.String("address", s.address),
			zap.Stringer("sent", req.cmd.Code()),
			zap.Stringer("echoed", frame.Command),
		)
	}
	if anomalies := frame.Anomalies(); len(anomalies) > 0 {
		logging.Warn("Response fields outside documented ranges",
			zap.String("address", s.address),
			zap.Strings("fields", anomalies),
		)
	}

	state := protocol.NewDeviceState(frame)
	s.current = &state
	if m, ok := req.cmd.(protocol.SetMode); ok {
		s.modeHint = m.Mode
	}
	s.transitionLocked(StateReady)
	s.resolveLocked(req, result{state: state})
}

// resolveLocked completes req exactly once
func (s *Session) resolveLocked(req *request, r result) {
	req.timer.Stop()
	if s.pending == req {
		s.pending = nil
	}
	req.done <- r
}

// teardownLocked fails any pending request with err and returns to Disconnected
func (s *Session) teardownLocked(err *Error) {
	req := s.pending
	s.current = nil
	s.modeHint = 0
	s.link++
	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}
	s.transitionLocked(StateDisconnected)
	if req != nil {
		s.resolveLocked(req, result{err: err})
	}
}

func (s *Session) transitionLocked(to State) {
	from := s.state
	s.state = to
	s.generation++
	logging.LogTransition(s.address, from.String(), to.String(), s.generation)
}
