package pump

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/callback"
	"github.com/le-bot-team/audioengine/internal/device"
)

// fakeSource is a minimal Source that always reports availability and
// fills Read with a fixed pattern, used to drive the pump without a real
// controller.
type fakeSource struct {
	mu        sync.Mutex
	available int
}

func (f *fakeSource) Available() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeSource) Read(dst []float32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(dst)
	if n > f.available {
		n = f.available
	}
	f.available -= n
	return n
}

func (f *fakeSource) feed(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available += n
}

func newMockAdapter(t *testing.T) *callback.Mock {
	t.Helper()
	m := callback.NewMock()
	cfg := device.DefaultConfig()
	cfg.FramesPerBuffer = 64
	cfg.Channels = 2
	_, err := m.Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	return m
}

func TestPumpDrainsAvailableChunksAndAccumulatesFrames(t *testing.T) {
	adapter := newMockAdapter(t)
	src := &fakeSource{}
	src.feed(128) // one chunk of 128 samples = 64 frames at 2 channels

	p := New(Config{ChunkSize: 128, Channels: 2, FramesPerBuffer: 64, SampleRate: 44100}, src, adapter)
	p.Run()

	require.Eventually(t, func() bool {
		return p.PumpedFrames() >= 64
	}, time.Second, time.Millisecond)

	p.Stop(2 * time.Second)
	assert.GreaterOrEqual(t, p.PumpedFrames(), int64(64))
}

func TestPumpStopIsIdempotentAndBounded(t *testing.T) {
	adapter := newMockAdapter(t)
	src := &fakeSource{}
	p := New(Config{ChunkSize: 128, Channels: 2, FramesPerBuffer: 64, SampleRate: 44100}, src, adapter)
	p.Run()

	start := time.Now()
	p.Stop(time.Second)
	p.Stop(time.Second)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-p.Done():
	default:
		t.Fatal("expected pump loop to have exited after Stop")
	}
}

func TestPumpBacksOffOnSendError(t *testing.T) {
	adapter := newMockAdapter(t)
	adapter.FailSend = true
	src := &fakeSource{}
	src.feed(1 << 20)

	var sends int64
	p := New(Config{ChunkSize: 128, Channels: 2, FramesPerBuffer: 64, SampleRate: 44100}, src, recordingAdapter{adapter, &sends})
	p.Run()

	time.Sleep(50 * time.Millisecond)
	p.Stop(time.Second)

	// With back-off doubling on every failed send, the call count over a
	// short fixed window should stay small rather than spinning.
	assert.Less(t, atomic.LoadInt64(&sends), int64(200))
}

// recordingAdapter wraps a callback.Adapter to count Send invocations.
type recordingAdapter struct {
	callback.Adapter
	sends *int64
}

func (r recordingAdapter) Send(samples []float32) error {
	atomic.AddInt64(r.sends, 1)
	return r.Adapter.Send(samples)
}

func TestPumpStopAsyncCompletes(t *testing.T) {
	adapter := newMockAdapter(t)
	src := &fakeSource{}
	p := New(Config{ChunkSize: 128, Channels: 2, FramesPerBuffer: 64, SampleRate: 44100}, src, adapter)
	p.Run()

	done := p.StopAsync(time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAsync did not complete")
	}
}
