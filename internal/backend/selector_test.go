package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/callback"
	"github.com/le-bot-team/audioengine/internal/device"
)

func TestResolvePrefersPrimaryWhenItSucceeds(t *testing.T) {
	var primaryCalls, secondaryCalls int
	s := NewWithFactories(
		func() callback.Adapter {
			primaryCalls++
			return callback.NewMock()
		},
		func() callback.Adapter {
			secondaryCalls++
			return callback.NewMock()
		},
	)

	adapter, kind, framesPerBuf, err := s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, KindPrimary, kind)
	assert.NotNil(t, adapter)
	assert.Equal(t, device.DefaultConfig().FramesPerBuffer, framesPerBuf)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 0, secondaryCalls)
}

func TestResolveFallsBackToSecondaryOnPrimaryFailure(t *testing.T) {
	s := NewWithFactories(
		func() callback.Adapter {
			m := callback.NewMock()
			m.FailInitialize = true
			return m
		},
		func() callback.Adapter {
			return callback.NewMock()
		},
	)

	adapter, kind, _, err := s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, KindSecondary, kind)
	assert.NotNil(t, adapter)
}

func TestResolveFailsWhenBothBackendsFail(t *testing.T) {
	s := NewWithFactories(
		func() callback.Adapter {
			m := callback.NewMock()
			m.FailInitialize = true
			return m
		},
		func() callback.Adapter {
			m := callback.NewMock()
			m.FailInitialize = true
			return m
		},
	)

	_, _, _, err := s.Resolve(device.DefaultConfig())
	require.Error(t, err)
}

func TestResolveIsMemoized(t *testing.T) {
	var primaryCalls int
	s := NewWithFactories(
		func() callback.Adapter {
			primaryCalls++
			return callback.NewMock()
		},
		func() callback.Adapter { return callback.NewMock() },
	)

	_, _, _, err := s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	_, _, _, err = s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, primaryCalls)
}

func TestResetAllowsReprobing(t *testing.T) {
	var primaryCalls int
	s := NewWithFactories(
		func() callback.Adapter {
			primaryCalls++
			return callback.NewMock()
		},
		func() callback.Adapter { return callback.NewMock() },
	)

	_, _, _, err := s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	s.Reset()
	_, _, _, err = s.Resolve(device.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, primaryCalls)
}
