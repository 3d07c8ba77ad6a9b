// Package backend implements the lazy, memoized backend selector
// (spec.md §4.D): it decides, once per process, whether the primary
// (PortAudio) or secondary (malgo) callback adapter is used, and applies
// the fallback policy on primary failure. Grounded on the teacher's
// internal/audio package, which hard-codes PortAudio as its only backend;
// this generalizes that into an explicit two-tier selection policy the way
// agalue-sherpa-voice-assistant's capture/playback split suggests a
// miniaudio-only alternative stack would look.
package backend

import (
	"fmt"
	"log"
	"sync"

	"github.com/le-bot-team/audioengine/internal/callback"
	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
)

// Kind identifies which adapter implementation was ultimately selected.
type Kind int

const (
	KindPrimary Kind = iota
	KindSecondary
	KindMock
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindSecondary:
		return "secondary"
	case KindMock:
		return "mock"
	default:
		return "unknown"
	}
}

// Factory constructs a fresh, uninitialized Adapter. Selector holds one
// factory per candidate backend; tests substitute factories that return
// *callback.Mock instead of native adapters.
type Factory func() callback.Adapter

// Selector probes the primary backend first and falls back to the
// secondary on any failure, memoizing the winning Kind and Adapter for the
// lifetime of the process (or, in tests, for the lifetime of the
// Selector).
type Selector struct {
	mu sync.Mutex

	primary   Factory
	secondary Factory

	resolved    bool
	kind        Kind
	adapter     callback.Adapter
	framesPerBuf int
}

// New constructs a selector around the real PortAudio/malgo factories.
func New() *Selector {
	return &Selector{
		primary:   func() callback.Adapter { return callback.NewPortAudio() },
		secondary: func() callback.Adapter { return callback.NewMalgo() },
	}
}

// NewWithFactories builds a selector from caller-supplied factories, used
// by tests to substitute mock adapters and force fallback paths.
func NewWithFactories(primary, secondary Factory) *Selector {
	return &Selector{primary: primary, secondary: secondary}
}

// Resolve negotiates a working adapter against cfg, memoizing the result.
// A second call with a different cfg does not re-probe; callers that need
// to change backends must construct a new Selector.
func (s *Selector) Resolve(cfg device.Config) (callback.Adapter, Kind, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s.adapter, s.kind, s.framesPerBuf, nil
	}

	if adapter, framesPerBuf, err := s.tryPrimary(cfg); err == nil {
		s.adapter = adapter
		s.kind = KindPrimary
		s.framesPerBuf = framesPerBuf
		s.resolved = true
		return adapter, KindPrimary, framesPerBuf, nil
	} else {
		log.Printf("backend: primary unavailable, falling back to secondary: %v", err)
	}

	adapter, framesPerBuf, err := s.trySecondary(cfg)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: primary and secondary both failed: %v", engineerr.ErrBackendUnavailable, err)
	}

	s.adapter = adapter
	s.kind = KindSecondary
	s.framesPerBuf = framesPerBuf
	s.resolved = true
	return adapter, KindSecondary, framesPerBuf, nil
}

func (s *Selector) tryPrimary(cfg device.Config) (callback.Adapter, int, error) {
	if s.primary == nil {
		return nil, 0, fmt.Errorf("no primary backend configured")
	}
	adapter := s.primary()
	framesPerBuf, err := adapter.Initialize(s.applyHostAPIHint(cfg))
	if err != nil {
		adapter.Close()
		return nil, 0, err
	}
	return adapter, framesPerBuf, nil
}

func (s *Selector) trySecondary(cfg device.Config) (callback.Adapter, int, error) {
	if s.secondary == nil {
		return nil, 0, fmt.Errorf("no secondary backend configured")
	}
	// The secondary backend does not expose host-API selection; any
	// preference becomes a hint only, so it is dropped here and the
	// backend picks the platform-appropriate driver itself.
	hintless := cfg
	hintless.PreferredHostAPI = device.HostAPIDefault
	adapter := s.secondary()
	framesPerBuf, err := adapter.Initialize(hintless)
	if err != nil {
		adapter.Close()
		return nil, 0, err
	}
	return adapter, framesPerBuf, nil
}

// applyHostAPIHint resolves HostAPIDefault to the platform's mapped API
// before handing the configuration to the primary adapter, which does its
// own device lookup per host API.
func (s *Selector) applyHostAPIHint(cfg device.Config) device.Config {
	if cfg.PreferredHostAPI == device.HostAPIDefault {
		cfg.PreferredHostAPI = device.PlatformDefaultHostAPI()
	}
	return cfg
}

// Resolved reports whether a backend has already been chosen, and which.
func (s *Selector) Resolved() (Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind, s.resolved
}

// Reset clears the memoized selection, forcing the next Resolve to probe
// again. Intended for tests; production callers construct a new Selector
// instead, matching the per-process lazy-selector design in spec.md §9
// ("Global mutable state ... is replaced by a per-process lazy selector
// object").
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = false
	s.adapter = nil
	s.framesPerBuf = 0
}
