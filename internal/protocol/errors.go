package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// FrameErrorKind classifies why a notification payload could not be decoded
type FrameErrorKind int

const (
	// FrameWrongLength indicates the payload is not exactly ResponseFrameSize bytes
	FrameWrongLength FrameErrorKind = iota
	// FrameBadMagic indicates the payload does not start with 0xAA 0x55
	FrameBadMagic
	// FrameChecksumMismatch indicates the trailing checksum byte disagrees with the payload
	FrameChecksumMismatch
	// FrameEmptyOrUnauthenticated indicates an empty or all-zero payload, which
	// is what the heater sends back when the passkey is wrong
	FrameEmptyOrUnauthenticated
)

// String returns a human-readable name for the error kind
func (k FrameErrorKind) String() string {
	switch k {
	case FrameWrongLength:
		return "wrong length"
	case FrameBadMagic:
		return "bad magic"
	case FrameChecksumMismatch:
		return "checksum mismatch"
	case FrameEmptyOrUnauthenticated:
		return "empty or unauthenticated"
	default:
		return fmt.Sprintf("FrameErrorKind(%d)", k)
	}
}

// FrameError describes a notification payload that failed to decode.
// Raw always holds a copy of the offending bytes.
type FrameError struct {
	Kind FrameErrorKind
	Raw  []byte
	Want int // expected length or checksum, depending on Kind
	Got  int // observed length or checksum, depending on Kind
}

// Error implements the error interface
func (e *FrameError) Error() string {
	switch e.Kind {
	case FrameWrongLength:
		return fmt.Sprintf("frame %s: got %d bytes, want %d", e.Kind, e.Got, e.Want)
	case FrameChecksumMismatch:
		return fmt.Sprintf("frame %s: got 0x%02x, computed 0x%02x (raw %s)",
			e.Kind, e.Got, e.Want, hex.EncodeToString(e.Raw))
	case FrameBadMagic:
		return fmt.Sprintf("frame %s: got 0x%04x, want 0x%04x", e.Kind, e.Got, e.Want)
	default:
		return fmt.Sprintf("frame %s (%d bytes)", e.Kind, len(e.Raw))
	}
}

// Is reports whether target is a FrameError of the same kind, so callers can
// match against the Err* sentinels with errors.Is.
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrWrongLength            = &FrameError{Kind: FrameWrongLength}
	ErrBadMagic               = &FrameError{Kind: FrameBadMagic}
	ErrChecksumMismatch       = &FrameError{Kind: FrameChecksumMismatch}
	ErrEmptyOrUnauthenticated = &FrameError{Kind: FrameEmptyOrUnauthenticated}
)

func newFrameError(kind FrameErrorKind, data []byte, want, got int) *FrameError {
	raw := make([]byte, len(data))
	copy(raw, data)
	return &FrameError{Kind: kind, Raw: raw, Want: want, Got: got}
}

// IsUnauthenticated checks if err is (or wraps) an empty/unauthenticated frame error
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrEmptyOrUnauthenticated)
}

// ValidationError reports a command whose data value is outside the domain
// accepted in the current operation mode. It is raised before any I/O.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
	Mode  OperationMode // zero when the mode is unknown
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Mode == 0 && e.Min == 0 && e.Max == 0 {
		return fmt.Sprintf("%s %d out of range: operation mode unknown", e.Field, e.Value)
	}
	if e.Mode == 0 {
		return fmt.Sprintf("%s %d out of range [%d,%d]", e.Field, e.Value, e.Min, e.Max)
	}
	return fmt.Sprintf("%s %d out of range [%d,%d] for %s mode", e.Field, e.Value, e.Min, e.Max, e.Mode)
}

// IsOutOfRange checks if err is (or wraps) a ValidationError
func IsOutOfRange(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
