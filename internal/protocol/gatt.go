package protocol

import "github.com/google/uuid"

// GATT identifiers exposed by the heater's BLE module. A single
// characteristic carries both request writes and response notifications.
var (
	ServiceUUID        = uuid.MustParse("0000ffe0-0000-1000-8000-00805f9b34fb")
	CharacteristicUUID = uuid.MustParse("0000ffe1-0000-1000-8000-00805f9b34fb")
)
