// Package logging provides structured logging for heaterble.
//
// This package wraps a global zap logger with level helpers and a few
// protocol-specific functions. Logging is silent unless a level is passed to
// Initialize or HEATERBLE_LOG_LEVEL is set, so CLI output stays clean.
//
// # Log Levels
//
//   - Debug: frame hex dumps, session transitions
//   - Info: transport connect/disconnect, bridge discovery
//   - Warn: protocol anomalies (echo mismatch, reserved bytes, stale notifications)
//   - Error: transport failures
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.LogFrame(address, "tx", frame.Bytes())
//	logging.Warn("Reserved byte set",
//	    zap.String("address", address),
//	    zap.Uint8("value", b),
//	)
//
// Logs go to stderr in console format.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
