package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/heaterble/internal/protocol"
)

// ErrorKind is the category of a session failure
type ErrorKind int

const (
	// KindAuthenticationFailed indicates the heater did not answer the
	// opening ping, or answered with an empty payload. The session is closed.
	KindAuthenticationFailed ErrorKind = iota
	// KindBusy indicates another request is still awaiting its response
	KindBusy
	// KindTimeout indicates no response arrived in time. The session stays usable.
	KindTimeout
	// KindTransport indicates the underlying link failed. The session is closed.
	KindTransport
	// KindProtocol indicates a notification that could not be decoded
	KindProtocol
	// KindInvalidCommand indicates a command rejected before any I/O
	KindInvalidCommand
	// KindNotConnected indicates a command issued without a connection
	KindNotConnected
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "Authentication Failed"
	case KindBusy:
		return "Busy"
	case KindTimeout:
		return "Timeout"
	case KindTransport:
		return "Transport Error"
	case KindProtocol:
		return "Protocol Error"
	case KindInvalidCommand:
		return "Invalid Command"
	case KindNotConnected:
		return "Not Connected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// ErrNotificationsClosed is wrapped when the transport closes the
// notification stream underneath a live session
var ErrNotificationsClosed = errors.New("notification stream closed")

// Error is returned by every Session operation
type Error struct {
	Kind      ErrorKind        // Category of error
	Message   string           // Human-readable error message
	Command   protocol.Command // Command being issued, if any
	Err       error            // Underlying error (FrameError, ValidationError, transport error)
	Retryable bool             // Whether reissuing the command may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Command != nil {
		fmt.Fprintf(&b, " [%s]", e.Command)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func isKind(err error, kind ErrorKind) bool {
	k, ok := kindOf(err)
	return ok && k == kind
}

// IsAuthenticationFailed checks if err is an authentication failure
func IsAuthenticationFailed(err error) bool { return isKind(err, KindAuthenticationFailed) }

// IsBusy checks if err reports a request already in flight
func IsBusy(err error) bool { return isKind(err, KindBusy) }

// IsTimeout checks if err is a response timeout
func IsTimeout(err error) bool { return isKind(err, KindTimeout) }

// IsTransport checks if err is a transport failure
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsProtocol checks if err wraps an undecodable notification
func IsProtocol(err error) bool { return isKind(err, KindProtocol) }

// IsInvalidCommand checks if err is a command rejected before I/O
func IsInvalidCommand(err error) bool { return isKind(err, KindInvalidCommand) }

// IsNotConnected checks if err reports a missing connection
func IsNotConnected(err error) bool { return isKind(err, KindNotConnected) }

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// TroubleshootingHint returns user-facing advice for a session error
func TroubleshootingHint(err error) string {
	kind, ok := kindOf(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch kind {
	case KindAuthenticationFailed:
		return strings.Join([]string{
			"The heater did not accept the passkey.",
			"Troubleshooting:",
			"  • The factory passkey is 1234",
			"  • Check the passkey configured in the heater's app",
			"  • Make sure no phone is connected to the heater at the same time",
		}, "\n")
	case KindTimeout:
		return strings.Join([]string{
			"The heater did not respond in time.",
			"Troubleshooting:",
			"  • Move the adapter or bridge closer to the heater",
			"  • Try increasing --timeout",
			"  • Retry the command",
		}, "\n")
	case KindBusy:
		return "Another command is still waiting for the heater. Wait for it to finish and retry."
	case KindTransport:
		return strings.Join([]string{
			"The connection to the heater was lost.",
			"Troubleshooting:",
			"  • Check the bridge is reachable (heaterctl scan)",
			"  • Verify the heater's BLE address",
			"  • Power-cycle the heater's BLE module",
		}, "\n")
	case KindProtocol:
		return "The heater sent a response that could not be decoded. Re-run with --log-level debug to capture the raw bytes."
	case KindInvalidCommand:
		return "The command value is not valid in the heater's current mode. Manual levels are 1-10, automatic targets are 8-36 °C."
	case KindNotConnected:
		return "No connection to the heater. Connect first."
	default:
		return "An error occurred. Please check the error message for details."
	}
}
