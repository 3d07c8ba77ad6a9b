package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/engineerr"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsOutOfRangeSampleRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 1000
	err := cfg.Validate()
	assert.ErrorIs(t, err, engineerr.ErrConfigRejected)
}

func TestValidateRejectsUnsupportedChannelCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 6
	err := cfg.Validate()
	assert.ErrorIs(t, err, engineerr.ErrConfigRejected)
}

func TestValidateRejectsNonPositiveFramesPerBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FramesPerBuffer = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, engineerr.ErrConfigRejected)
}

func TestHostAPIStringKnownValues(t *testing.T) {
	assert.Equal(t, "ALSA", HostAPIALSA.String())
	assert.Equal(t, "WASAPI", HostAPIWASAPI.String())
	assert.Equal(t, "Unknown", HostAPI(999).String())
}

func TestStateStringKnownValues(t *testing.T) {
	assert.Equal(t, "Active", StateActive.String())
	assert.Equal(t, "Unplugged", StateUnplugged.String())
	assert.Equal(t, "Unknown", State(999).String())
}
