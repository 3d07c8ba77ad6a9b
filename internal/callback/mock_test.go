package callback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
	"github.com/le-bot-team/audioengine/internal/events"
)

type recordingHandler struct {
	events.NopHandler
	mu      sync.Mutex
	changes []events.DeviceStateChanged
}

func (r *recordingHandler) OnDeviceStateChanged(e events.DeviceStateChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, e)
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestMockPreBuffersBeforeEmittingAudio(t *testing.T) {
	m := NewMock()
	cfg := device.DefaultConfig()
	cfg.FramesPerBuffer = 16
	cfg.Channels = 2
	_, err := m.Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start())

	// No samples sent yet: every tick should report the full buffer as
	// silence while pre-buffering.
	missed := m.Tick()
	require.Equal(t, cfg.FramesPerBuffer*cfg.Channels, missed)

	// Feed exactly the threshold (2x one buffer) worth of samples.
	samples := make([]float32, cfg.FramesPerBuffer*cfg.Channels*2)
	for i := range samples {
		samples[i] = 1
	}
	require.NoError(t, m.Send(samples))

	missed = m.Tick()
	require.Equal(t, 0, missed)
}

func TestMockSendStopsDropOnFullRing(t *testing.T) {
	m := NewMock()
	cfg := device.DefaultConfig()
	cfg.FramesPerBuffer = 8
	cfg.Channels = 1
	_, err := m.Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start())

	huge := make([]float32, 10000)
	require.NoError(t, m.Send(huge)) // must not hang
}

func TestMockSetDeviceRejectedWhileStarted(t *testing.T) {
	m := NewMock()
	cfg := device.DefaultConfig()
	_, err := m.Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start())

	err = m.SetOutputDevice("1")
	require.ErrorIs(t, err, engineerr.ErrInvalidState)
}

func TestMockSetDeviceAppliesWhenStopped(t *testing.T) {
	m := NewMock()
	cfg := device.DefaultConfig()
	_, err := m.Initialize(cfg)
	require.NoError(t, err)

	require.NoError(t, m.SetOutputDevice("1"))
	require.Equal(t, "1", m.OutputDeviceID())
}

func TestMockUnknownDeviceIDRejected(t *testing.T) {
	m := NewMock()
	cfg := device.DefaultConfig()
	_, err := m.Initialize(cfg)
	require.NoError(t, err)
	require.Error(t, m.SetOutputDevice("99"))
}

func TestMockEmitsDeviceStateChangedOnTransition(t *testing.T) {
	m := NewMock()
	h := &recordingHandler{}
	m.SetEventHandler(h)

	_, err := m.ListOutputDevices()
	require.NoError(t, err)
	require.Equal(t, 0, h.count(), "first enumeration establishes the baseline, no change yet")

	m.SetDeviceState("1", true, device.StateUnplugged)

	_, err = m.ListOutputDevices()
	require.NoError(t, err)
	require.Equal(t, 1, h.count())
	require.Equal(t, "1", h.changes[0].ID)
	require.Equal(t, device.StateUnplugged, h.changes[0].NewState)
}

func TestMockNilEventHandlerDoesNotPanic(t *testing.T) {
	m := NewMock()
	m.SetDeviceState("1", true, device.StateUnplugged)
	require.NotPanics(t, func() {
		_, _ = m.ListOutputDevices()
	})
}
