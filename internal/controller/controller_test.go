package controller

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-bot-team/audioengine/internal/events"
)

type recordingHandler struct {
	events.NopHandler
	mu        sync.Mutex
	underruns []events.BufferUnderrun
}

func (r *recordingHandler) OnBufferUnderrun(e events.BufferUnderrun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.underruns = append(r.underruns, e)
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.underruns)
}

func TestSendWithinCapacityReportsNoUnderrun(t *testing.T) {
	h := &recordingHandler{}
	c := New(Config{RingCapacity: 2048, Channels: 2}, h)

	n := c.Send(make([]float32, 1024))
	assert.Equal(t, 1024, n)
	assert.Equal(t, int64(0), c.UnderrunCount())
	assert.Equal(t, 0, h.count())
}

func TestSendPastCapacityEmitsUnderrun(t *testing.T) {
	h := &recordingHandler{}
	c := New(Config{RingCapacity: 2048, Channels: 2}, h)

	n := c.Send(make([]float32, 4096))
	assert.Equal(t, 2048, n)
	assert.Equal(t, int64(1), c.UnderrunCount())
	require.Equal(t, 1, h.count())
	assert.Equal(t, int64((4096-2048)/2), h.underruns[0].MissedFrames)
}

func TestReadDrainsWhatWasWritten(t *testing.T) {
	c := New(Config{RingCapacity: 1024, Channels: 1}, nil)
	c.Send([]float32{1, 2, 3, 4})

	dst := make([]float32, 4)
	n := c.Read(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{1, 2, 3, 4}, dst)
}

func TestClearOutputDiscardsUnread(t *testing.T) {
	c := New(Config{RingCapacity: 1024, Channels: 1}, nil)
	c.Send([]float32{1, 2, 3})
	c.ClearOutput()
	assert.Equal(t, 0, c.Available())
}

func TestRentReturnInputDelegatesToPool(t *testing.T) {
	c := New(Config{RingCapacity: 1024, Channels: 2, InputBufferSize: 256, InputPoolInitial: 1, InputPoolMax: 4}, nil)

	buf := c.RentInput()
	require.Len(t, buf, 256)
	c.ReturnInput(buf)
}

func TestRentInputNilWithoutPool(t *testing.T) {
	c := New(Config{RingCapacity: 1024, Channels: 2}, nil)
	assert.Nil(t, c.RentInput())
}

func TestNilHandlerDoesNotPanicOnUnderrun(t *testing.T) {
	c := New(Config{RingCapacity: 64, Channels: 2}, nil)
	assert.NotPanics(t, func() {
		c.Send(make([]float32, 256))
	})
}
