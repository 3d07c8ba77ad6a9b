// Package device holds the configuration record and device descriptor
// shared by the backend selector, callback adapters, and engine wrapper.
// The error kinds live in package engineerr.
package device

import (
	"fmt"

	"github.com/le-bot-team/audioengine/internal/engineerr"
)

// HostAPI names a concrete OS-level audio interface, or lets the backend
// pick its own platform default.
type HostAPI int

const (
	HostAPIDefault HostAPI = iota
	HostAPIWASAPI
	HostAPICoreAudio
	HostAPIALSA
	HostAPIJACK
	HostAPIASIO
	HostAPIWDMKS
	HostAPIAAudio
	HostAPIOpenSL
)

func (h HostAPI) String() string {
	switch h {
	case HostAPIDefault:
		return "Default"
	case HostAPIWASAPI:
		return "WASAPI"
	case HostAPICoreAudio:
		return "CoreAudio"
	case HostAPIALSA:
		return "ALSA"
	case HostAPIJACK:
		return "JACK"
	case HostAPIASIO:
		return "ASIO"
	case HostAPIWDMKS:
		return "WDMKS"
	case HostAPIAAudio:
		return "AAudio"
	case HostAPIOpenSL:
		return "OpenSL"
	default:
		return "Unknown"
	}
}

// Config is the immutable per-session configuration record described in
// spec.md §3. Callers build one, call Validate, and must not mutate it
// after passing it to Engine.Initialize.
type Config struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	EnableInput     bool
	PreferredHostAPI HostAPI
}

// DefaultConfig returns a conservative stereo configuration, the same
// shape of default the teacher's config.DefaultConfig establishes for its
// own audio settings.
func DefaultConfig() Config {
	return Config{
		SampleRate:       44100,
		Channels:         2,
		FramesPerBuffer:  512,
		EnableInput:      false,
		PreferredHostAPI: HostAPIDefault,
	}
}

// Validate rejects configuration combinations that are never usable by
// any backend. Backend-specific rejection (e.g. a host API unsupported on
// the chosen backend) happens in the backend selector, which returns
// ErrConfigRejected.
func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample rate %d out of range [8000, 192000]", engineerr.ErrConfigRejected, c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: channels %d must be 1 or 2", engineerr.ErrConfigRejected, c.Channels)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("%w: frames per buffer %d must be positive", engineerr.ErrConfigRejected, c.FramesPerBuffer)
	}
	return nil
}

// State is a device's current availability.
type State int

const (
	StateActive State = iota
	StateDisabled
	StateNotPresent
	StateUnplugged
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDisabled:
		return "Disabled"
	case StateNotPresent:
		return "NotPresent"
	case StateUnplugged:
		return "Unplugged"
	default:
		return "Unknown"
	}
}

// Descriptor describes one native audio device as enumerated by a
// backend.
type Descriptor struct {
	ID                string
	Name              string
	APIName           string
	Input             bool
	Output            bool
	IsDefault         bool
	State             State
	MaxInputChannels  int
	MaxOutputChannels int
}

// PlatformDefaultHostAPI returns the platform-default host API mapping
// from spec.md §4.D, used when Config.PreferredHostAPI is HostAPIDefault.
// It is implemented per-OS in platform_*.go.
func PlatformDefaultHostAPI() HostAPI {
	return platformDefaultHostAPI()
}
