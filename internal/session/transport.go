package session

import "context"

// Transport is the BLE link to one heater. Both methods address the
// heater's control characteristic (protocol.CharacteristicUUID).
type Transport interface {
	// WriteCharacteristic writes one request frame
	WriteCharacteristic(ctx context.Context, data []byte) error

	// Subscribe enables notifications. The returned channel delivers one
	// payload per notification and is closed when ctx is cancelled or the
	// link is lost.
	Subscribe(ctx context.Context) (<-chan []byte, error)
}
