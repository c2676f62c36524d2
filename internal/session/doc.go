// Package session drives a BLE parking heater over an injected Transport.
//
// The heater protocol has no request IDs and no authentication handshake:
// the passkey travels in every frame, and each accepted write is answered by
// exactly one notification. Session therefore allows a single request in
// flight and treats the first answered Ping as proof of authentication.
//
// # States
//
//	Disconnected --Connect--> Authenticating --Ping--> AwaitingResponse
//	AwaitingResponse --notification--> Ready
//	AwaitingResponse --timeout--> Ready (Timeout) or Disconnected (AuthenticationFailed)
//	Ready --Issue--> AwaitingResponse
//	any --Disconnect--> Disconnected
//
// Every transition increments a generation counter under the session mutex.
// Response timers and notifications check it before acting, so exactly one
// of {timeout, response} completes a request.
//
// # Usage Example
//
//	s := session.New(transport, "AA:BB:CC:DD:EE:FF")
//	if err := s.Connect(ctx, 1234); err != nil {
//	    return err
//	}
//	defer s.Disconnect()
//
//	state, err := s.Ping(ctx)
//	if session.IsAuthenticationFailed(err) {
//	    // wrong passkey
//	}
//
//	state, err = s.SetTargetTemperature(ctx, 21)
//	if session.IsBusy(err) || session.IsTimeout(err) {
//	    // safe to retry
//	}
//
// # Errors
//
// All operations return *Error. Busy, Timeout and Protocol errors leave the
// session usable; AuthenticationFailed and Transport errors disconnect it.
// InvalidCommand is reported before anything is written.
package session
