// Package callback: PortAudio-backed primary Adapter implementation,
// grounded on the teacher's internal/audio/recorder.go and player.go
// device-selection and stream-lifecycle patterns.
package callback

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
	"github.com/le-bot-team/audioengine/internal/events"
	"github.com/le-bot-team/audioengine/internal/ring"
)

// internalRingMultiplier sizes the adapter's own decoupling ring as a
// multiple of one negotiated buffer. This ring only bridges the pump
// thread's Send calls to the real-time callback; the application-facing
// ring owned by the buffer controller is sized with the same multiple.
const internalRingMultiplier = 4

// preBufferMultiplier matches spec.md §4.C: the callback keeps outputting
// silence until available samples reach 2x one engine buffer.
const preBufferMultiplier = 2

// PortAudio is the primary callback adapter.
type PortAudio struct {
	mu sync.Mutex

	cfg             device.Config
	channels        int
	framesPerBuffer int

	stream *portaudio.Stream

	outRing *ring.Buffer
	inRing  *ring.Buffer

	preBuffering atomic.Bool
	threshold    int64
	activation   atomic.Int32

	initialized bool

	outDevice *portaudio.DeviceInfo
	inDevice  *portaudio.DeviceInfo

	handler    events.Handler
	outTracker *device.StateTracker
	inTracker  *device.StateTracker
}

// NewPortAudio constructs an uninitialized PortAudio adapter.
func NewPortAudio() *PortAudio {
	return &PortAudio{
		handler:    events.NopHandler{},
		outTracker: device.NewStateTracker(),
		inTracker:  device.NewStateTracker(),
	}
}

// SetEventHandler installs h as the recipient of DeviceStateChanged events
// observed on subsequent ListOutputDevices/ListInputDevices calls.
func (p *PortAudio) SetEventHandler(h events.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h == nil {
		h = events.NopHandler{}
	}
	p.handler = h
}

func (p *PortAudio) Initialize(cfg device.Config) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("%w: portaudio init: %v", engineerr.ErrBackendUnavailable, err)
	}

	p.cfg = cfg
	p.channels = cfg.Channels
	p.framesPerBuffer = cfg.FramesPerBuffer

	if err := p.resolveDevices(cfg); err != nil {
		portaudio.Terminate()
		return 0, err
	}

	ringCapacity := p.framesPerBuffer * p.channels * internalRingMultiplier
	p.outRing = ring.New(ringCapacity)
	if cfg.EnableInput {
		p.inRing = ring.New(ringCapacity)
	}
	p.threshold = int64(p.framesPerBuffer * p.channels * preBufferMultiplier)
	p.initialized = true
	p.activation.Store(int32(ActivationIdle))

	return p.framesPerBuffer, nil
}

// resolveDevices picks the output (and, if enabled, input) device
// according to the configured host API preference: it maps
// cfg.PreferredHostAPI to PortAudio's host-API identifier, finds that
// API's own default device, and falls back to the backend's overall
// default device when no preference was set or nothing matches.
func (p *PortAudio) resolveDevices(cfg device.Config) error {
	api, hasAPI := p.hostAPI(cfg.PreferredHostAPI)

	if hasAPI && api.DefaultOutputDevice != nil {
		p.outDevice = api.DefaultOutputDevice
	} else {
		out, err := portaudio.DefaultOutputDevice()
		if err != nil || out == nil {
			return fmt.Errorf("%w: no default output device: %v", engineerr.ErrDeviceOpenFailed, err)
		}
		p.outDevice = out
	}

	if cfg.EnableInput {
		in, err := p.selectInputDevice(api, hasAPI)
		if err != nil {
			return err
		}
		p.inDevice = in
	}
	return nil
}

// hostAPI resolves a device.HostAPI preference to PortAudio's own
// HostApiInfo, which carries that API's recommended default input/output
// devices. It reports false if the preference is HostAPIDefault or has no
// PortAudio equivalent (e.g. the mobile-only AAudio/OpenSL entries).
func (p *PortAudio) hostAPI(preferred device.HostAPI) (*portaudio.HostApiInfo, bool) {
	apiType, ok := portaudioHostAPIType(preferred)
	if !ok {
		return nil, false
	}
	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, false
	}
	for _, a := range apis {
		if a.Type == apiType {
			return a, true
		}
	}
	return nil, false
}

// portaudioHostAPIType maps the spec's backend-agnostic host API enum to
// PortAudio's own HostApiTypeId constants.
func portaudioHostAPIType(api device.HostAPI) (portaudio.HostApiTypeId, bool) {
	switch api {
	case device.HostAPIWASAPI:
		return portaudio.WASAPI, true
	case device.HostAPICoreAudio:
		return portaudio.CoreAudio, true
	case device.HostAPIALSA:
		return portaudio.ALSA, true
	case device.HostAPIJACK:
		return portaudio.JACK, true
	case device.HostAPIASIO:
		return portaudio.ASIO, true
	case device.HostAPIWDMKS:
		return portaudio.WDMKS, true
	default:
		return 0, false
	}
}

// selectInputDevice prefers the preferred host API's own default input
// device, then falls back to scoring candidates by name, preferring
// PulseAudio/PipeWire and explicit microphone devices over monitor or
// loopback devices. The scoring heuristic is carried over from the
// teacher's recorder.go findAudioDevice, factored out here as
// ScoreDeviceName.
func (p *PortAudio) selectInputDevice(api *portaudio.HostApiInfo, hasAPI bool) (*portaudio.DeviceInfo, error) {
	if hasAPI && api.DefaultInputDevice != nil {
		return api.DefaultInputDevice, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", engineerr.ErrDeviceOpenFailed, err)
	}

	var best *portaudio.DeviceInfo
	bestScore := -1
	for _, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		if hasAPI && (d.HostApi == nil || d.HostApi.Type != api.Type) {
			continue
		}
		score := ScoreDeviceName(d.Name)
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	if best != nil {
		return best, nil
	}
	def, err := portaudio.DefaultInputDevice()
	if err != nil || def == nil {
		return nil, fmt.Errorf("%w: no input device available", engineerr.ErrDeviceOpenFailed)
	}
	return def, nil
}

// ScoreDeviceName implements the device-priority heuristic from the
// teacher's recorder.go findAudioDevice. It is used only by
// selectInputDevice; the backend selector and output-device selection do
// not score devices by name.
func ScoreDeviceName(name string) int {
	lower := strings.ToLower(name)
	score := 0

	switch {
	case strings.Contains(lower, "pulse"):
		score = 200
	case strings.Contains(lower, "pipewire"):
		score = 190
	case lower == "default":
		score = 150
	}
	if strings.Contains(lower, "microphone") || strings.Contains(lower, "mic") {
		score += 100
	}
	if strings.Contains(lower, "digital") {
		score += 50
	}
	if strings.HasPrefix(lower, "capture") && !strings.Contains(lower, "dsnoop") {
		score += 170
	}
	if strings.Contains(lower, "plughw") {
		score += 25
	}
	if strings.Contains(lower, "monitor") || strings.Contains(lower, "loopback") ||
		strings.Contains(lower, "sysdefault") || strings.Contains(lower, "samplerate") ||
		strings.Contains(lower, "upmix") || strings.Contains(lower, "vdownmix") {
		return -1
	}
	if score == 0 {
		score = 10
	}
	return score
}

func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return nil // idempotent
	}
	if !p.initialized {
		return engineerr.ErrNotInitialized
	}

	p.preBuffering.Store(true)

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   p.outDevice,
			Channels: p.channels,
			Latency:  p.outDevice.DefaultLowOutputLatency,
		},
		SampleRate:      float64(p.cfg.SampleRate),
		FramesPerBuffer: p.framesPerBuffer,
	}

	var stream *portaudio.Stream
	var err error
	if p.cfg.EnableInput && p.inDevice != nil {
		params.Input = portaudio.StreamDeviceParameters{
			Device:   p.inDevice,
			Channels: p.channels,
			Latency:  p.inDevice.DefaultLowInputLatency,
		}
		stream, err = portaudio.OpenStream(params, p.duplexCallback)
	} else {
		stream, err = portaudio.OpenStream(params, p.outputCallback)
	}
	if err != nil {
		p.activation.Store(int32(ActivationError))
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		p.activation.Store(int32(ActivationError))
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}

	p.stream = stream
	p.activation.Store(int32(ActivationActive))
	return nil
}

// outputCallback is the real-time callback for output-only streams. It
// must not allocate, block, or let a host-language exception cross the
// boundary.
func (p *PortAudio) outputCallback(out []float32) {
	defer func() {
		if r := recover(); r != nil {
			p.activation.Store(int32(ActivationError))
		}
	}()
	p.fillOutput(out)
}

func (p *PortAudio) duplexCallback(in, out []float32) {
	defer func() {
		if r := recover(); r != nil {
			p.activation.Store(int32(ActivationError))
		}
	}()
	if p.inRing != nil {
		p.inRing.Write(in)
	}
	p.fillOutput(out)
}

func (p *PortAudio) fillOutput(out []float32) {
	if p.preBuffering.Load() {
		for i := range out {
			out[i] = 0
		}
		if int64(p.outRing.Available()) >= p.threshold {
			p.preBuffering.Store(false)
		}
		return
	}

	n := p.outRing.Read(out)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil // idempotent
	}
	if err := p.stream.Stop(); err != nil {
		p.stream.Close()
		p.stream = nil
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	if err := p.stream.Close(); err != nil {
		p.stream = nil
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	p.stream = nil
	p.activation.Store(int32(ActivationIdle))
	return nil
}

func (p *PortAudio) Send(samples []float32) error {
	remaining := samples
	for len(remaining) > 0 {
		n := p.outRing.Write(remaining)
		remaining = remaining[n:]
		if len(remaining) > 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func (p *PortAudio) Receive() []float32 {
	if p.inRing == nil {
		return nil
	}
	dst := make([]float32, p.framesPerBuffer*p.channels)
	n := p.inRing.Read(dst)
	return dst[:n]
}

func (p *PortAudio) ListOutputDevices() ([]device.Descriptor, error) {
	descriptors, err := p.listDevices(false)
	if err != nil {
		return nil, err
	}
	p.emitStateChanges(p.outTracker, descriptors)
	return descriptors, nil
}

func (p *PortAudio) ListInputDevices() ([]device.Descriptor, error) {
	descriptors, err := p.listDevices(true)
	if err != nil {
		return nil, err
	}
	p.emitStateChanges(p.inTracker, descriptors)
	return descriptors, nil
}

// emitStateChanges reports every device whose State differs from what
// tracker last observed for it, notably a transition into or out of
// StateUnplugged/StateNotPresent.
func (p *PortAudio) emitStateChanges(tracker *device.StateTracker, descriptors []device.Descriptor) {
	for _, d := range tracker.Diff(descriptors) {
		p.handler.OnDeviceStateChanged(events.DeviceStateChanged{ID: d.ID, NewState: d.State, Descriptor: d})
	}
}

func (p *PortAudio) listDevices(input bool) ([]device.Descriptor, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	var out []device.Descriptor
	for i, d := range devices {
		if input && d.MaxInputChannels == 0 {
			continue
		}
		if !input && d.MaxOutputChannels == 0 {
			continue
		}
		apiName := ""
		if d.HostApi != nil {
			apiName = d.HostApi.Name
		}
		isDefault := (input && d == defaultIn) || (!input && d == defaultOut)
		out = append(out, device.Descriptor{
			ID:                strconv.Itoa(i),
			Name:              d.Name,
			APIName:           apiName,
			Input:             d.MaxInputChannels > 0,
			Output:            d.MaxOutputChannels > 0,
			IsDefault:         isDefault,
			State:             device.StateActive,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
		})
	}
	return out, nil
}

func (p *PortAudio) SetOutputDevice(id string) error {
	if p.stream != nil {
		return engineerr.ErrInvalidState
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= len(devices) {
		return fmt.Errorf("%w: unknown output device %q", engineerr.ErrDeviceOpenFailed, id)
	}
	p.outDevice = devices[idx]
	return nil
}

func (p *PortAudio) SetInputDevice(id string) error {
	if p.stream != nil {
		return engineerr.ErrInvalidState
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= len(devices) {
		return fmt.Errorf("%w: unknown input device %q", engineerr.ErrDeviceOpenFailed, id)
	}
	p.inDevice = devices[idx]
	return nil
}

func (p *PortAudio) Activation() Activation {
	return Activation(p.activation.Load())
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
	}
	if p.initialized {
		portaudio.Terminate()
		p.initialized = false
	}
	return nil
}
