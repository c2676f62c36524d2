// Package ui provides terminal UI components for the heaterctl CLI.
//
// Most commands follow a "run once and exit" pattern: they send one request,
// print a status panel or a result box, and return. The watch command is the
// exception and runs an interactive Bubble Tea dashboard.
//
// # Components
//
//   - Panel: heater status rendered with Lipgloss, including a power gauge
//   - Result: success, warning, and failure boxes with troubleshooting tips
//   - Printer: writes panels and results, styled or plain
//   - WatchModel: live dashboard that polls the heater and accepts key presses
//
// # Usage Pattern
//
//	p := ui.NewPrinter(os.Stdout)
//	state, err := sess.Ping(ctx)
//	if err != nil {
//	    p.PrintResult(ui.NewFailureResult("Status failed", err, session.TroubleshootingHint(err)))
//	    return err
//	}
//	p.PrintState("van", address, state)
//
// Plain output (SetPlain) drops borders and colour for pipes and scripts.
//
// # Watch Dashboard
//
// WatchModel drives any Controller, normally a *session.Session. Only one
// request runs at a time; key presses that talk to the heater are ignored
// until the previous response arrives. Polls share a rate limiter with the
// manual refresh key so the heater is never asked more than once per poll
// interval. Authentication and transport failures end the dashboard; the
// error is available from Err after the program exits.
//
// # Logging Integration
//
// This package expects logging to be controlled via the HEATERBLE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly. Set HEATERBLE_LOG_LEVEL to
// "debug", "info", "warn", or "error" to enable logging output.
package ui
