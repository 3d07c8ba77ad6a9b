package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/backend"
	"github.com/le-bot-team/audioengine/internal/callback"
	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
)

func newMockSelector() (*backend.Selector, *callback.Mock) {
	mock := callback.NewMock()
	sel := backend.NewWithFactories(
		func() callback.Adapter { return mock },
		func() callback.Adapter { return callback.NewMock() },
	)
	return sel, mock
}

func TestEngineScenario1StartSendStopZeros(t *testing.T) {
	sel, mock := newMockSelector()
	e := New(sel, nil)

	cfg := device.DefaultConfig()
	cfg.SampleRate = 44100
	cfg.Channels = 2
	cfg.FramesPerBuffer = 512
	require.NoError(t, e.Initialize(cfg))
	require.NoError(t, e.Start())
	assert.Equal(t, StateRunning, e.State())

	require.NoError(t, e.Send(make([]float32, 2048)))

	// Drive the mock's simulated callback enough times to drain what the
	// pump has pushed.
	for i := 0; i < 50; i++ {
		mock.Tick()
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, e.Stop())
	assert.Equal(t, StateInitialized, e.State())

	pumped := e.TotalPumpedFrames()
	assert.GreaterOrEqual(t, pumped, int64(0))
	assert.LessOrEqual(t, pumped, int64(2048))
}

func TestEngineStartStopIsIdempotent(t *testing.T) {
	sel, _ := newMockSelector()
	e := New(sel, nil)
	require.NoError(t, e.Initialize(device.DefaultConfig()))

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.Equal(t, StateRunning, e.State())

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.Equal(t, StateInitialized, e.State())
}

func TestEngineDisposeFailsAllSubsequentCalls(t *testing.T) {
	sel, _ := newMockSelector()
	e := New(sel, nil)
	require.NoError(t, e.Initialize(device.DefaultConfig()))
	require.NoError(t, e.Start())
	require.NoError(t, e.Dispose())

	assert.ErrorIs(t, e.Initialize(device.DefaultConfig()), engineerr.ErrDisposed)
	assert.ErrorIs(t, e.Start(), engineerr.ErrDisposed)
	assert.ErrorIs(t, e.Stop(), engineerr.ErrDisposed)
	assert.ErrorIs(t, e.Send(nil), engineerr.ErrDisposed)
	_, err := e.Receive()
	assert.ErrorIs(t, err, engineerr.ErrDisposed)
	assert.ErrorIs(t, e.ClearOutput(), engineerr.ErrDisposed)
	assert.ErrorIs(t, e.SetOutputDevice("0"), engineerr.ErrDisposed)
}

func TestEngineSendBeforeRunningFailsNotRunning(t *testing.T) {
	sel, _ := newMockSelector()
	e := New(sel, nil)
	require.NoError(t, e.Initialize(device.DefaultConfig()))

	err := e.Send(make([]float32, 16))
	assert.ErrorIs(t, err, engineerr.ErrNotRunning)
}

func TestEngineDeviceChangeWhileRunningFailsInvalidState(t *testing.T) {
	sel, _ := newMockSelector()
	e := New(sel, nil)
	require.NoError(t, e.Initialize(device.DefaultConfig()))
	require.NoError(t, e.Start())

	err := e.SetOutputDevice("1")
	assert.ErrorIs(t, err, engineerr.ErrInvalidState)
}

func TestEngineDeviceChangeWhileStoppedSucceeds(t *testing.T) {
	sel, _ := newMockSelector()
	e := New(sel, nil)
	require.NoError(t, e.Initialize(device.DefaultConfig()))

	err := e.SetOutputDevice("1")
	assert.NoError(t, err)
}

func TestEngineTotalPumpedFramesNeverDecreasesAcrossLifetime(t *testing.T) {
	sel, mock := newMockSelector()
	e := New(sel, nil)
	cfg := device.DefaultConfig()
	cfg.FramesPerBuffer = 64
	require.NoError(t, e.Initialize(cfg))

	require.NoError(t, e.Start())
	require.NoError(t, e.Send(make([]float32, 4096)))
	for i := 0; i < 50; i++ {
		mock.Tick()
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, e.Stop())

	first := e.TotalPumpedFrames()
	assert.GreaterOrEqual(t, first, int64(0))

	require.NoError(t, e.Start())
	require.NoError(t, e.Send(make([]float32, 4096)))
	for i := 0; i < 50; i++ {
		mock.Tick()
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, e.Stop())
	assert.GreaterOrEqual(t, e.TotalPumpedFrames(), first)
}
