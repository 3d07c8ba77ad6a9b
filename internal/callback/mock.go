// Package callback: Mock is a deterministic, allocation-light Adapter used
// by the controller, pump, and engine tests in place of a real PortAudio or
// malgo stream. It has no timer of its own: tests drive time by calling
// Tick, which runs exactly one simulated callback.
package callback

import (
	"sync"
	"sync/atomic"

	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
	"github.com/le-bot-team/audioengine/internal/events"
	"github.com/le-bot-team/audioengine/internal/ring"
)

// Mock implements Adapter without touching any native audio API. Tests
// construct one, Initialize/Start it like any other adapter, then call Tick
// to simulate the real-time callback firing once.
type Mock struct {
	mu sync.Mutex

	cfg             device.Config
	channels        int
	framesPerBuffer int

	outRing *ring.Buffer
	inRing  *ring.Buffer

	preBuffering atomic.Bool
	threshold    int64
	activation   atomic.Int32

	initialized bool
	started     bool

	outDevices []device.Descriptor
	inDevices  []device.Descriptor
	outID      string
	inID       string

	handler    events.Handler
	outTracker *device.StateTracker
	inTracker  *device.StateTracker

	// FailInitialize, FailStart, and FailSend let tests force adapter-level
	// errors without simulating real hardware failures.
	FailInitialize bool
	FailStart      bool
	FailSend       bool

	// TickInput feeds fixed capture samples into inRing on every Tick, if
	// input is enabled.
	TickInput []float32

	// underrunFrames accumulates missed samples (frames x channels) per
	// Tick, for tests that
	// want to assert on underrun counting without a controller.
	underrunFrames int64
}

// NewMock constructs an uninitialized mock adapter with two default
// devices, one of which is marked default, matching the shape tests expect
// from a real backend's device list.
func NewMock() *Mock {
	return &Mock{
		outDevices: []device.Descriptor{
			{ID: "0", Name: "Mock Output", APIName: "mock", Output: true, IsDefault: true, State: device.StateActive, MaxOutputChannels: 2},
			{ID: "1", Name: "Mock Output Alt", APIName: "mock", Output: true, State: device.StateActive, MaxOutputChannels: 2},
		},
		inDevices: []device.Descriptor{
			{ID: "0", Name: "Mock Input", APIName: "mock", Input: true, IsDefault: true, State: device.StateActive, MaxInputChannels: 2},
			{ID: "1", Name: "Mock Input Alt", APIName: "mock", Input: true, State: device.StateActive, MaxInputChannels: 2},
		},
		handler:    events.NopHandler{},
		outTracker: device.NewStateTracker(),
		inTracker:  device.NewStateTracker(),
	}
}

// SetEventHandler installs h as the recipient of DeviceStateChanged events
// observed on subsequent ListOutputDevices/ListInputDevices calls.
func (m *Mock) SetEventHandler(h events.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		h = events.NopHandler{}
	}
	m.handler = h
}

func (m *Mock) Initialize(cfg device.Config) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInitialize {
		return 0, engineerr.ErrConfigRejected
	}

	m.cfg = cfg
	m.channels = cfg.Channels
	m.framesPerBuffer = cfg.FramesPerBuffer

	ringCapacity := m.framesPerBuffer * m.channels * internalRingMultiplier
	m.outRing = ring.New(ringCapacity)
	if cfg.EnableInput {
		m.inRing = ring.New(ringCapacity)
	}
	m.threshold = int64(m.framesPerBuffer * m.channels * preBufferMultiplier)
	m.initialized = true
	m.activation.Store(int32(ActivationIdle))
	m.outID = "0"
	m.inID = "0"

	return m.framesPerBuffer, nil
}

func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if !m.initialized {
		return engineerr.ErrNotInitialized
	}
	if m.FailStart {
		m.activation.Store(int32(ActivationError))
		return engineerr.ErrDeviceOpenFailed
	}

	m.preBuffering.Store(true)
	m.started = true
	m.activation.Store(int32(ActivationActive))
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false
	m.activation.Store(int32(ActivationIdle))
	return nil
}

// Tick simulates exactly one real-time callback invocation, reading one
// frames-per-buffer chunk of output and, if input is enabled, writing
// TickInput into the input ring. It applies the pre-buffering threshold
// of the real adapters, with one difference: the Tick on which the
// threshold is reached already reads from the ring, whereas the real
// adapters output silence on that callback and read from the next one.
// It returns the number of samples (frames x channels) that were
// simulated as silence due to underrun or pre-buffering.
func (m *Mock) Tick() (underrunFrames int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return 0
	}

	n := m.framesPerBuffer * m.channels
	out := make([]float32, n)

	if m.preBuffering.Load() {
		if int64(m.outRing.Available()) >= m.threshold {
			m.preBuffering.Store(false)
		} else {
			if m.inRing != nil && len(m.TickInput) > 0 {
				m.inRing.Write(m.TickInput)
			}
			return n
		}
	}

	read := m.outRing.Read(out)
	missed := n - read
	if missed > 0 {
		atomic.AddInt64(&m.underrunFrames, int64(missed))
	}

	if m.inRing != nil && len(m.TickInput) > 0 {
		m.inRing.Write(m.TickInput)
	}
	return missed
}

// UnderrunFrames reports the cumulative samples (frames x channels)
// simulated as silence across all Tick calls due to a ring that ran dry
// (excluding the initial pre-buffering gate).
func (m *Mock) UnderrunFrames() int64 {
	return atomic.LoadInt64(&m.underrunFrames)
}

// Send writes samples into the output ring. Unlike the real adapters it
// does not wait for space: whatever does not fit in the ring is dropped.
func (m *Mock) Send(samples []float32) error {
	if m.FailSend {
		return engineerr.ErrDeviceOpenFailed
	}
	remaining := samples
	for len(remaining) > 0 {
		n := m.outRing.Write(remaining)
		if n == 0 {
			break
		}
		remaining = remaining[n:]
	}
	return nil
}

func (m *Mock) Receive() []float32 {
	if m.inRing == nil {
		return nil
	}
	dst := make([]float32, m.framesPerBuffer*m.channels)
	n := m.inRing.Read(dst)
	return dst[:n]
}

func (m *Mock) ListOutputDevices() ([]device.Descriptor, error) {
	m.mu.Lock()
	descriptors := append([]device.Descriptor(nil), m.outDevices...)
	m.mu.Unlock()
	m.emitStateChanges(m.outTracker, descriptors)
	return descriptors, nil
}

func (m *Mock) ListInputDevices() ([]device.Descriptor, error) {
	m.mu.Lock()
	descriptors := append([]device.Descriptor(nil), m.inDevices...)
	m.mu.Unlock()
	m.emitStateChanges(m.inTracker, descriptors)
	return descriptors, nil
}

// emitStateChanges reports every device whose State differs from what
// tracker last observed for it, notably a transition into or out of
// StateUnplugged/StateNotPresent.
func (m *Mock) emitStateChanges(tracker *device.StateTracker, descriptors []device.Descriptor) {
	for _, d := range tracker.Diff(descriptors) {
		m.handler.OnDeviceStateChanged(events.DeviceStateChanged{ID: d.ID, NewState: d.State, Descriptor: d})
	}
}

// SetDeviceState overwrites the State of the output or input device
// matching id, for tests simulating a device transitioning (e.g. to
// StateUnplugged) between two List calls. It has no effect on a started
// stream's active device selection.
func (m *Mock) SetDeviceState(id string, output bool, state device.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.inDevices
	if output {
		list = m.outDevices
	}
	for i := range list {
		if list[i].ID == id {
			list[i].State = state
			return
		}
	}
}

func (m *Mock) SetOutputDevice(id string) error {
	if m.started {
		return engineerr.ErrInvalidState
	}
	if !m.hasDevice(m.outDevices, id) {
		return engineerr.ErrDeviceOpenFailed
	}
	m.outID = id
	return nil
}

func (m *Mock) SetInputDevice(id string) error {
	if m.started {
		return engineerr.ErrInvalidState
	}
	if !m.hasDevice(m.inDevices, id) {
		return engineerr.ErrDeviceOpenFailed
	}
	m.inID = id
	return nil
}

func (m *Mock) hasDevice(list []device.Descriptor, id string) bool {
	for _, d := range list {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (m *Mock) Activation() Activation {
	return Activation(m.activation.Load())
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	m.initialized = false
	return nil
}

// OutputDeviceID and InputDeviceID report the currently selected device, so
// tests can assert a SetOutputDevice/SetInputDevice call took effect.
func (m *Mock) OutputDeviceID() string {
	return m.outID
}

func (m *Mock) InputDeviceID() string {
	return m.inID
}
