package session

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/muurk/heaterble/internal/protocol"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "Message only",
			err:      &Error{Kind: KindNotConnected, Message: "not connected"},
			expected: "Not Connected: not connected",
		},
		{
			name:     "With command",
			err:      &Error{Kind: KindBusy, Message: "still waiting", Command: protocol.SetLevel{Value: 5}},
			expected: "Busy: still waiting [SetLevel(5)]",
		},
		{
			name:     "With cause",
			err:      &Error{Kind: KindTransport, Message: "write failed", Err: errors.New("EOF")},
			expected: "Transport Error: write failed (caused by: EOF)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := &protocol.ValidationError{Field: "level", Value: 40, Min: 8, Max: 36, Mode: protocol.ModeAutomatic}
	err := fmt.Errorf("issuing: %w", &Error{Kind: KindInvalidCommand, Message: "command rejected", Err: cause})

	var ve *protocol.ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should find the ValidationError")
	}
	if !protocol.IsOutOfRange(err) {
		t.Error("IsOutOfRange should see through the session error")
	}
	if !IsInvalidCommand(err) {
		t.Error("IsInvalidCommand should see through fmt wrapping")
	}
}

func TestKindPredicates(t *testing.T) {
	kinds := []struct {
		kind ErrorKind
		is   func(error) bool
	}{
		{KindAuthenticationFailed, IsAuthenticationFailed},
		{KindBusy, IsBusy},
		{KindTimeout, IsTimeout},
		{KindTransport, IsTransport},
		{KindProtocol, IsProtocol},
		{KindInvalidCommand, IsInvalidCommand},
		{KindNotConnected, IsNotConnected},
	}

	for _, tt := range kinds {
		t.Run(tt.kind.String(), func(t *testing.T) {
			for _, other := range kinds {
				err := &Error{Kind: other.kind}
				if got, want := tt.is(err), other.kind == tt.kind; got != want {
					t.Errorf("predicate for %s on %s = %v, want %v", tt.kind, other.kind, got, want)
				}
			}
			if tt.is(errors.New("plain")) {
				t.Error("predicate matched a plain error")
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"Busy is retryable", &Error{Kind: KindBusy, Retryable: true}, true},
		{"Timeout is retryable", &Error{Kind: KindTimeout, Retryable: true}, true},
		{"Auth failure is not retryable", &Error{Kind: KindAuthenticationFailed}, false},
		{"Unknown error is not retryable", errors.New("unknown error"), false},
		{"Nil is not retryable", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedText string
	}{
		{"Authentication", &Error{Kind: KindAuthenticationFailed}, "passkey"},
		{"Timeout", &Error{Kind: KindTimeout}, "--timeout"},
		{"Transport", &Error{Kind: KindTransport}, "heaterctl scan"},
		{"Invalid command", &Error{Kind: KindInvalidCommand}, "8-36"},
		{"Plain error", errors.New("boom"), "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TroubleshootingHint(tt.err); !strings.Contains(got, tt.expectedText) {
				t.Errorf("TroubleshootingHint() = %q, want it to contain %q", got, tt.expectedText)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateAuthenticating, "authenticating"},
		{StateReady, "ready"},
		{StateAwaitingResponse, "awaiting_response"},
		{State(9), "State(9)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.expected)
		}
	}
}
