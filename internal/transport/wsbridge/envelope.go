package wsbridge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/muurk/heaterble/internal/protocol"
)

const (
	typeSubscribe  = "subscribe"
	typeSubscribed = "subscribed"
	typeError      = "error"
)

// envelope is the JSON control message exchanged before and alongside
// binary GATT traffic
type envelope struct {
	Type           string `json:"type"`
	Address        string `json:"address,omitempty"`
	Service        string `json:"service,omitempty"`
	Characteristic string `json:"characteristic,omitempty"`
	Error          string `json:"error,omitempty"`
}

func subscribeRequest(address string) envelope {
	return envelope{
		Type:           typeSubscribe,
		Address:        address,
		Service:        protocol.ServiceUUID.String(),
		Characteristic: protocol.CharacteristicUUID.String(),
	}
}

// checkGATT verifies the request names the heater's service and characteristic
func (e envelope) checkGATT() error {
	service, err := uuid.Parse(e.Service)
	if err != nil {
		return fmt.Errorf("invalid service UUID %q: %w", e.Service, err)
	}
	if service != protocol.ServiceUUID {
		return fmt.Errorf("unsupported service %s", service)
	}
	characteristic, err := uuid.Parse(e.Characteristic)
	if err != nil {
		return fmt.Errorf("invalid characteristic UUID %q: %w", e.Characteristic, err)
	}
	if characteristic != protocol.CharacteristicUUID {
		return fmt.Errorf("unsupported characteristic %s", characteristic)
	}
	return nil
}

// BridgeError is an error reported by the bridge in an error envelope
type BridgeError struct {
	Message string
}

func (e *BridgeError) Error() string {
	return "bridge: " + e.Message
}
