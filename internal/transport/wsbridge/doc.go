// Package wsbridge carries the heater's GATT traffic over a websocket to a
// BLE gateway ("bridge") that owns the radio.
//
// # Wire Format
//
// The client connects to the bridge URL with the heater's BLE address in the
// query string, e.g.
//
//	ws://gateway.local:8765/ble?address=AA:BB:CC:DD:EE:FF
//
// Control messages are JSON text frames:
//
//	→ {"type":"subscribe","address":"AA:BB:...","service":"0000ffe0-...","characteristic":"0000ffe1-..."}
//	← {"type":"subscribed","address":"AA:BB:..."}
//	← {"type":"error","error":"unknown device"}
//
// After the subscribe handshake every binary message from the client is a
// characteristic write, and every binary message from the bridge is a
// notification. Payloads are passed through unchanged.
//
// Client satisfies session.Transport. Server is the bridge side and exposes
// any Device (the simulator in tests and in `heaterctl bridge --simulate`).
package wsbridge
