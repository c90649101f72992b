// Package adapter defines the narrow BLE transport interface the protocol
// core depends on (§4.2) — scan/connect/read/write/subscribe/disconnect
// over 128-bit characteristic identifiers. The transport itself is an
// out-of-scope collaborator; this package only pins the shape the core
// requires and provides a mock used by the core's own tests plus a real
// Linux adapter built on paypal/gatt.
package adapter

import (
	"context"
	"regexp"

	uuid "github.com/satori/go.uuid"
)

// Handle identifies an established connection to a peripheral. Its
// concrete type is adapter-specific; the core treats it opaquely.
type Handle interface{}

// NotifyFunc is invoked on the adapter's own goroutine(s) whenever a
// subscribed characteristic notifies. Implementations MUST be
// non-blocking and MUST NOT call back into the core's connect/disconnect
// entry points synchronously (§5).
type NotifyFunc func(id uuid.UUID, data []byte)

// DisconnectFunc is invoked when the peripheral disconnects without the
// caller having asked for it (§4.5's "unsolicited peer disconnect").
type DisconnectFunc func()

// Adapter is the BLE transport capability the session depends on.
type Adapter interface {
	// Scan enumerates advertising peripherals and returns the first whose
	// advertised name matches namePattern, or ("", "", ErrScanCancelled) if
	// ctx is cancelled first.
	Scan(ctx context.Context, namePattern *regexp.Regexp) (name, address string, err error)

	// Connect establishes a legacy GATT connection and performs primary
	// service discovery. onDisconnect fires if the peripheral drops the
	// connection on its own.
	Connect(ctx context.Context, address string, onDisconnect DisconnectFunc) (Handle, error)

	// ReadCharacteristic performs a synchronous read.
	ReadCharacteristic(handle Handle, id uuid.UUID) ([]byte, error)

	// WriteCharacteristic performs a synchronous write without response.
	WriteCharacteristic(handle Handle, id uuid.UUID, data []byte) error

	// Subscribe arranges for onNotify to be called with each notification
	// on id.
	Subscribe(handle Handle, id uuid.UUID, onNotify NotifyFunc) error

	// ManufacturerData returns the advertisement's manufacturer-specific
	// field observed for handle.
	ManufacturerData(handle Handle) []byte

	// Disconnect tears down the connection. It does not itself invoke the
	// DisconnectFunc registered at Connect time.
	Disconnect(handle Handle)
}
