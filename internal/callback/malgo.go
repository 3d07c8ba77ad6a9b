// Package callback: malgo-backed (miniaudio) secondary Adapter
// implementation, the always-bundled fallback. Grounded on
// agalue-sherpa-voice-assistant's internal/audio/capture.go and
// playback.go, which drive the same miniaudio device/callback model.
package callback

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engineerr"
	"github.com/le-bot-team/audioengine/internal/events"
	"github.com/le-bot-team/audioengine/internal/ring"
)

// Malgo is the secondary callback adapter, used when the primary
// (PortAudio) backend fails to load or open a device.
type Malgo struct {
	mu sync.Mutex

	ctx *malgo.AllocatedContext

	cfg             device.Config
	channels        int
	framesPerBuffer int

	dev *malgo.Device

	outRing *ring.Buffer
	inRing  *ring.Buffer

	preBuffering atomic.Bool
	threshold    int64
	activation   atomic.Int32

	outDeviceID *malgo.DeviceID
	inDeviceID  *malgo.DeviceID

	// outScratch and inScratch are allocated once, before Start, and
	// reused by every invocation of dataCallback: the real-time audio
	// thread must never allocate.
	outScratch []float32
	inScratch  []float32

	handler    events.Handler
	outTracker *device.StateTracker
	inTracker  *device.StateTracker
}

// NewMalgo constructs an uninitialized malgo adapter.
func NewMalgo() *Malgo {
	return &Malgo{
		handler:    events.NopHandler{},
		outTracker: device.NewStateTracker(),
		inTracker:  device.NewStateTracker(),
	}
}

// SetEventHandler installs h as the recipient of DeviceStateChanged events
// observed on subsequent ListOutputDevices/ListInputDevices calls.
func (m *Malgo) SetEventHandler(h events.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		h = events.NopHandler{}
	}
	m.handler = h
}

func (m *Malgo) Initialize(cfg device.Config) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: malgo init: %v", engineerr.ErrBackendUnavailable, err)
	}
	m.ctx = ctx
	m.cfg = cfg
	m.channels = cfg.Channels
	m.framesPerBuffer = cfg.FramesPerBuffer

	ringCapacity := m.framesPerBuffer * m.channels * internalRingMultiplier
	m.outRing = ring.New(ringCapacity)
	if cfg.EnableInput {
		m.inRing = ring.New(ringCapacity)
	}
	m.threshold = int64(m.framesPerBuffer * m.channels * preBufferMultiplier)
	m.activation.Store(int32(ActivationIdle))

	return m.framesPerBuffer, nil
}

func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		return nil // idempotent
	}
	if m.ctx == nil {
		return engineerr.ErrNotInitialized
	}

	deviceType := malgo.Playback
	if m.cfg.EnableInput {
		deviceType = malgo.Duplex
	}

	cfg := malgo.DefaultDeviceConfig(deviceType)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(m.channels)
	if m.outDeviceID != nil {
		cfg.Playback.DeviceID = m.outDeviceID
	}
	if m.cfg.EnableInput {
		cfg.Capture.Format = malgo.FormatF32
		cfg.Capture.Channels = uint32(m.channels)
		if m.inDeviceID != nil {
			cfg.Capture.DeviceID = m.inDeviceID
		}
	}
	cfg.SampleRate = uint32(m.cfg.SampleRate)
	cfg.PeriodSizeInFrames = uint32(m.framesPerBuffer)

	// Pre-allocate everything the callback will touch; the callback
	// itself never allocates once the stream is running.
	scratchLen := m.framesPerBuffer * m.channels
	m.outScratch = make([]float32, scratchLen)
	if m.cfg.EnableInput {
		m.inScratch = make([]float32, scratchLen)
	}

	m.preBuffering.Store(true)

	callbacks := malgo.DeviceCallbacks{
		Data: m.dataCallback,
	}

	dev, err := malgo.InitDevice(m.ctx.Context, cfg, callbacks)
	if err != nil {
		m.activation.Store(int32(ActivationError))
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		m.activation.Store(int32(ActivationError))
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}

	m.dev = dev
	m.activation.Store(int32(ActivationActive))
	return nil
}

// dataCallback is invoked on malgo's real-time audio thread. Buffers are
// raw bytes of interleaved float32 samples in native endianness; no
// allocation happens here beyond the fixed scratch the caller already
// sized.
func (m *Malgo) dataCallback(outputBytes, inputBytes []byte, frameCount uint32) {
	defer func() {
		if r := recover(); r != nil {
			m.activation.Store(int32(ActivationError))
		}
	}()

	frames := int(frameCount) * m.channels

	if m.inRing != nil && len(inputBytes) > 0 {
		in := m.inScratch[:frames]
		bytesToFloat32Into(inputBytes, in)
		m.inRing.Write(in)
	}

	out := m.outScratch[:frames]
	if m.preBuffering.Load() {
		for i := range out {
			out[i] = 0
		}
		if int64(m.outRing.Available()) >= m.threshold {
			m.preBuffering.Store(false)
		}
	} else {
		n := m.outRing.Read(out)
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	}
	float32ToBytes(out, outputBytes)
}

func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return nil
	}
	if err := m.dev.Stop(); err != nil {
		m.dev.Uninit()
		m.dev = nil
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	m.dev.Uninit()
	m.dev = nil
	m.activation.Store(int32(ActivationIdle))
	return nil
}

func (m *Malgo) Send(samples []float32) error {
	remaining := samples
	for len(remaining) > 0 {
		n := m.outRing.Write(remaining)
		remaining = remaining[n:]
		if len(remaining) > 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func (m *Malgo) Receive() []float32 {
	if m.inRing == nil {
		return nil
	}
	dst := make([]float32, m.framesPerBuffer*m.channels)
	n := m.inRing.Read(dst)
	return dst[:n]
}

func (m *Malgo) ListOutputDevices() ([]device.Descriptor, error) {
	descriptors, err := m.listDevices(malgo.Playback)
	if err != nil {
		return nil, err
	}
	m.emitStateChanges(m.outTracker, descriptors)
	return descriptors, nil
}

func (m *Malgo) ListInputDevices() ([]device.Descriptor, error) {
	descriptors, err := m.listDevices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	m.emitStateChanges(m.inTracker, descriptors)
	return descriptors, nil
}

// emitStateChanges reports every device whose State differs from what
// tracker last observed for it, notably a transition into or out of
// StateUnplugged/StateNotPresent.
func (m *Malgo) emitStateChanges(tracker *device.StateTracker, descriptors []device.Descriptor) {
	for _, d := range tracker.Diff(descriptors) {
		m.handler.OnDeviceStateChanged(events.DeviceStateChanged{ID: d.ID, NewState: d.State, Descriptor: d})
	}
}

func (m *Malgo) listDevices(deviceType malgo.DeviceType) ([]device.Descriptor, error) {
	if m.ctx == nil {
		return nil, engineerr.ErrNotInitialized
	}
	infos, err := m.ctx.Devices(deviceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}

	var out []device.Descriptor
	for i, info := range infos {
		name := malgoDeviceName(info)
		out = append(out, device.Descriptor{
			ID:        strconv.Itoa(i),
			Name:      name,
			APIName:   "miniaudio",
			Input:     deviceType == malgo.Capture || deviceType == malgo.Duplex,
			Output:    deviceType == malgo.Playback || deviceType == malgo.Duplex,
			IsDefault: info.IsDefault != 0,
			State:     device.StateActive,
		})
	}
	return out, nil
}

// malgoDeviceName trims the trailing NUL padding from miniaudio's
// fixed-width device name buffer.
func malgoDeviceName(info malgo.DeviceInfo) string {
	raw := info.Name[:]
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		raw = raw[:idx]
	}
	return string(raw)
}

// SetOutputDevice and SetInputDevice round-trip the index-based IDs
// produced by ListOutputDevices/ListInputDevices; the secondary backend's
// device-ID scheme is otherwise opaque, so we resolve by re-enumerating
// and indexing, same as the primary adapter.
func (m *Malgo) SetOutputDevice(id string) error {
	if m.dev != nil {
		return engineerr.ErrInvalidState
	}
	infos, err := m.ctx.Devices(malgo.Playback)
	if err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= len(infos) {
		return fmt.Errorf("%w: unknown output device %q", engineerr.ErrDeviceOpenFailed, id)
	}
	m.outDeviceID = &infos[idx].ID
	return nil
}

func (m *Malgo) SetInputDevice(id string) error {
	if m.dev != nil {
		return engineerr.ErrInvalidState
	}
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrDeviceOpenFailed, err)
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= len(infos) {
		return fmt.Errorf("%w: unknown input device %q", engineerr.ErrDeviceOpenFailed, id)
	}
	m.inDeviceID = &infos[idx].ID
	return nil
}

func (m *Malgo) Activation() Activation {
	return Activation(m.activation.Load())
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		m.dev.Stop()
		m.dev.Uninit()
		m.dev = nil
	}
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}

// bytesToFloat32Into decodes little-endian float32 samples from b into
// the pre-allocated dst, which must already be sized to len(b)/4.
func bytesToFloat32Into(b []byte, dst []float32) {
	for i := range dst {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		dst[i] = math.Float32frombits(bits)
	}
}

func float32ToBytes(samples []float32, dst []byte) {
	for i, s := range samples {
		bits := math.Float32bits(s)
		dst[i*4] = byte(bits)
		dst[i*4+1] = byte(bits >> 8)
		dst[i*4+2] = byte(bits >> 16)
		dst[i*4+3] = byte(bits >> 24)
	}
}
