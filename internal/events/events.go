// Package events defines the strongly-typed payloads forwarded from the
// transport and backend layers out to the engine wrapper and, ultimately,
// the application (spec.md §6).
package events

import "github.com/le-bot-team/audioengine/internal/device"

// BufferUnderrun reports that the producer wrote fewer samples than
// requested because the ring was full.
type BufferUnderrun struct {
	MissedFrames          int64
	ApproximatePositionInFrames int64
}

// OutputDeviceChanged reports a successful output device switch.
type OutputDeviceChanged struct {
	OldID      string
	NewID      string
	Descriptor device.Descriptor
}

// InputDeviceChanged reports a successful input device switch.
type InputDeviceChanged struct {
	OldID      string
	NewID      string
	Descriptor device.Descriptor
}

// DeviceStateChanged reports a device transitioning between the states in
// device.State (e.g. Unplugged).
type DeviceStateChanged struct {
	ID         string
	NewState   device.State
	Descriptor device.Descriptor
}

// Handler receives fire-and-forget event notifications. Implementations
// must return quickly and must not call back into the emitting component
// synchronously.
type Handler interface {
	OnBufferUnderrun(BufferUnderrun)
	OnOutputDeviceChanged(OutputDeviceChanged)
	OnInputDeviceChanged(InputDeviceChanged)
	OnDeviceStateChanged(DeviceStateChanged)
}

// NopHandler implements Handler with no-ops; embed it to implement only
// the events you care about.
type NopHandler struct{}

func (NopHandler) OnBufferUnderrun(BufferUnderrun)             {}
func (NopHandler) OnOutputDeviceChanged(OutputDeviceChanged)   {}
func (NopHandler) OnInputDeviceChanged(InputDeviceChanged)     {}
func (NopHandler) OnDeviceStateChanged(DeviceStateChanged)     {}
