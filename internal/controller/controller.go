// Package controller implements the buffer controller (spec.md §4.E): it
// composes the output ring (internal/ring) with the input buffer pool
// (internal/bufferpool), counts samples sent and underruns, and emits
// BufferUnderrun events. Grounded on the teacher's pattern of pairing a
// ring buffer with atomic counters around it in internal/audio/player.go,
// generalized here into its own component since the spec treats the
// ring+pool+counters as a unit distinct from the transport ring itself.
package controller

import (
	"sync/atomic"

	"github.com/le-bot-team/audioengine/internal/bufferpool"
	"github.com/le-bot-team/audioengine/internal/events"
	"github.com/le-bot-team/audioengine/internal/ring"
)

// Controller wraps one output ring and one input scratch-buffer pool for a
// single engine run. It is safe for one writer (application, via Send) and
// one reader (pump, via Read) to use concurrently; RentInput/ReturnInput
// may be called from the application thread only.
type Controller struct {
	channels int

	outRing  *ring.Buffer
	inputPool *bufferpool.Pool

	totalSent     int64
	underrunCount int64

	handler events.Handler
}

// Config describes the sizes the controller allocates; all are fixed for
// the lifetime of one Controller.
type Config struct {
	// RingCapacity is the output ring's capacity in samples.
	RingCapacity int
	// Channels converts sample counts to frame counts for event payloads.
	Channels int
	// InputBufferSize, InputPoolInitial, InputPoolMax size the input
	// scratch-buffer pool. Pass zero for InputBufferSize to skip creating
	// an input pool entirely (output-only engines).
	InputBufferSize  int
	InputPoolInitial int
	InputPoolMax     int
}

// New constructs a Controller. handler may be nil, in which case
// BufferUnderrun events are silently dropped.
func New(cfg Config, handler events.Handler) *Controller {
	c := &Controller{
		channels: cfg.Channels,
		outRing:  ring.New(cfg.RingCapacity),
		handler:  handler,
	}
	if cfg.InputBufferSize > 0 {
		c.inputPool = bufferpool.New(cfg.InputBufferSize, cfg.InputPoolInitial, cfg.InputPoolMax)
	}
	return c
}

// Send writes samples to the output ring, returning the number actually
// written. A short write increments the underrun counter and emits a
// BufferUnderrun event describing the missed frames and the approximate
// frame position at which the underrun occurred.
func (c *Controller) Send(samples []float32) int {
	n := c.outRing.Write(samples)
	atomic.AddInt64(&c.totalSent, int64(n))

	missed := len(samples) - n
	if missed > 0 {
		atomic.AddInt64(&c.underrunCount, 1)
		if c.handler != nil {
			c.handler.OnBufferUnderrun(events.BufferUnderrun{
				MissedFrames:                int64(c.samplesToFrames(missed)),
				ApproximatePositionInFrames: c.samplesToFrames(int(atomic.LoadInt64(&c.totalSent))),
			})
		}
	}
	return n
}

// Read drains up to len(dst) samples from the output ring; called by the
// pump worker.
func (c *Controller) Read(dst []float32) int {
	return c.outRing.Read(dst)
}

// Available reports how many samples the output ring currently holds.
func (c *Controller) Available() int {
	return c.outRing.Available()
}

// ClearOutput discards unread output samples. Not safe against a
// concurrently running pump; callers must quiesce it first.
func (c *Controller) ClearOutput() {
	c.outRing.Clear()
}

// RentInput borrows a scratch buffer from the input pool, or returns nil
// if no input pool was configured.
func (c *Controller) RentInput() []float32 {
	if c.inputPool == nil {
		return nil
	}
	return c.inputPool.Rent()
}

// ReturnInput releases a buffer previously obtained from RentInput.
func (c *Controller) ReturnInput(buf []float32) {
	if c.inputPool == nil {
		return
	}
	c.inputPool.Return(buf)
}

// TotalSent reports the cumulative sample count successfully written since
// construction.
func (c *Controller) TotalSent() int64 {
	return atomic.LoadInt64(&c.totalSent)
}

// UnderrunCount reports how many Send calls observed a short write.
func (c *Controller) UnderrunCount() int64 {
	return atomic.LoadInt64(&c.underrunCount)
}

func (c *Controller) samplesToFrames(samples int) int64 {
	if c.channels <= 0 {
		return int64(samples)
	}
	return int64(samples / c.channels)
}
