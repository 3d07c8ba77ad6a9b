// Package callback defines the device-callback adapter contract
// (spec.md §4.C) and its PortAudio, malgo, and mock implementations.
package callback

import (
	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/events"
)

// Activation reports whether a device stream is doing nothing, actively
// streaming, or has hit an unrecoverable internal error.
type Activation int

const (
	ActivationIdle Activation = iota
	ActivationActive
	ActivationError
)

// Adapter is implemented once per supported backend (PortAudio, malgo,
// and the deterministic Mock used in tests). It owns the native
// stream/device handle, runs the real-time callback, and exposes device
// enumeration and selection. All Adapter methods except the real-time
// callback itself may allocate and may block briefly.
type Adapter interface {
	// Initialize records cfg, allocates the adapter's rings, and returns
	// the frames-per-buffer to use. The PortAudio and malgo adapters
	// return cfg.FramesPerBuffer unchanged and do not probe the device
	// for a compatible mode; a configuration the device cannot open
	// surfaces from Start as engineerr.ErrDeviceOpenFailed. Only the Mock
	// returns engineerr.ErrConfigRejected, when FailInitialize is set.
	Initialize(cfg device.Config) (framesPerBuffer int, err error)

	// Start and Stop are idempotent lifecycle transitions.
	Start() error
	Stop() error

	// Send synchronously enqueues samples for output, spin-waiting with
	// short sleeps while the adapter's internal ring is full. It never
	// blocks indefinitely in practice: backpressure is bounded by the
	// device's own buffering.
	Send(samples []float32) error

	// Receive returns one buffer's worth of captured audio, or an empty
	// slice if input was not enabled or none is currently available.
	Receive() []float32

	ListOutputDevices() ([]device.Descriptor, error)
	ListInputDevices() ([]device.Descriptor, error)

	// SetOutputDevice and SetInputDevice select a device by ID. Callers
	// must ensure the stream is stopped first.
	SetOutputDevice(id string) error
	SetInputDevice(id string) error

	// SetEventHandler installs the handler the adapter reports device
	// events to, notably DeviceStateChanged as enumerations observe a
	// device transition. A nil handler reverts to a no-op.
	SetEventHandler(h events.Handler)

	Activation() Activation

	// Close releases all native resources. The adapter is unusable
	// afterward.
	Close() error
}
