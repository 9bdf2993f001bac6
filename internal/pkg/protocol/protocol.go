// Package protocol holds the contracts between a hardware unit's worker and
// the transport that talks to its physical devices.
package protocol

import (
	"context"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

// Handler is implemented by every transport (dummy, mqtt, ...).
type Handler interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// Send pushes a command for device out to the hardware.
	Send(ctx context.Context, device *model.Device, command string, value *int) error
	// UpdateLocal applies a value to the in-memory device only.
	UpdateLocal(ctx context.Context, device *model.Device, value *int) error
}

// Sink is what a transport may call back into while its worker runs.
type Sink interface {
	Devices(ctx context.Context) ([]model.Device, error)
	// CreateDevice persists a new device and writes its identity back onto it.
	CreateDevice(ctx context.Context, device *model.Device)
	// UpdateDevice replaces the stored record of an existing device.
	UpdateDevice(ctx context.Context, device *model.Device)
	SendValue(device *model.Device, command string, value *int)
	UpdateValue(device *model.Device, value *int)
}

// Dispatcher interprets inbound broker traffic for a protocol family.
type Dispatcher interface {
	// Start prepares the dispatcher before any message is delivered.
	Start(ctx context.Context) error
	// Handle reports whether the message was consumed.
	Handle(ctx context.Context, topic string, payload []byte) bool
}
