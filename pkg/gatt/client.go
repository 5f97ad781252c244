package gatt

import "github.com/google/uuid"

// WriteCallback receives the outcome of a characteristic write.
// For WriteTypeWithoutResponse it is invoked once the PDU is queued.
type WriteCallback func(connID uint16, handle uint16, status Status)

// Client writes characteristic values on behalf of the LE Audio engine.
// Implementations must not invoke done synchronously from within
// WriteCharacteristic.
type Client interface {
	WriteCharacteristic(connID uint16, handle uint16, value []byte, writeType WriteType, done WriteCallback) error
}

// NotificationHandler receives Handle Value Notifications.
type NotificationHandler func(connID uint16, handle uint16, value []byte)

// Characteristic describes a discovered characteristic value handle.
type Characteristic struct {
	UUID        uuid.UUID
	ValueHandle uint16
	CCCDHandle  uint16
}

// AttributeTable is the result of service discovery on one connection,
// used to resolve characteristic handles by UUID.
type AttributeTable struct {
	Characteristics []Characteristic
}

// Find returns all characteristics with the given UUID in handle order.
func (t *AttributeTable) Find(u uuid.UUID) []Characteristic {
	var out []Characteristic
	for _, c := range t.Characteristics {
		if c.UUID == u {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the characteristic owning a value handle.
func (t *AttributeTable) Lookup(handle uint16) (Characteristic, bool) {
	for _, c := range t.Characteristics {
		if c.ValueHandle == handle {
			return c, true
		}
	}
	return Characteristic{}, false
}
