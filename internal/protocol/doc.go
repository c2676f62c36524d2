// Package protocol implements the binary protocol spoken by BLE parking
// heaters over GATT characteristic 0000ffe1 (service 0000ffe0).
//
// The heater exposes a single characteristic that is used both for writing
// requests and for receiving responses as notifications. There are no frame
// delimiters and no request IDs: every accepted write produces exactly one
// notification that echoes the command code.
//
// # Request Frame (8 bytes)
//
//	AA 55 | passkey hi | passkey lo | command | data | 00 | checksum
//
// The checksum is the sum of bytes 2-6 modulo 256. The 4-digit passkey is
// split into decimal digit pairs (1234 becomes 0x0C 0x22) and embedded in
// every request. There is no separate authentication handshake: a frame
// carrying the wrong passkey is answered with an empty or all-zero payload.
//
// # Response Frame (20 bytes)
//
// Magic, echoed command, power, error, running state, altitude, mode,
// target level, current level, supply voltage, heater and room temperatures,
// display error, a reserved byte and a checksum over bytes 3-18. All 16-bit
// fields are little-endian.
//
// # Commands
//
//	1  read status   data 0
//	2  set mode      data 1 (manual) or 2 (automatic)
//	3  set power     data 0 (off) or 1 (on)
//	4  set level     data 1-10 (manual) or 8-36 °C (automatic)
//
// # Usage Example
//
//	passkey, _ := protocol.NewPasskey(1234)
//	cmd := protocol.SetLevel{Value: 5}
//	if err := protocol.Validate(cmd, protocol.ModeManual); err != nil {
//	    return err
//	}
//	frame := protocol.Encode(passkey, cmd)
//	// write frame.Bytes() to the characteristic ...
//
//	resp, err := protocol.Decode(notification)
//	if protocol.IsUnauthenticated(err) {
//	    // wrong passkey
//	}
//	state := protocol.NewDeviceState(resp)
//
// # Error Handling
//
// Decode distinguishes four failures via FrameError.Kind: wrong length, bad
// magic, checksum mismatch, and empty/unauthenticated. Field values outside
// their documented ranges are not errors; ResponseFrame.Anomalies reports
// them for logging.
//
// # Thread Safety
//
// All functions in this package are pure and safe for concurrent use.
package protocol
