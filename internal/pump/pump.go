// Package pump implements the dedicated draining worker (spec.md §4.F):
// one goroutine per engine run, recreated on every Start, that moves
// fixed-size chunks from the buffer controller into the callback adapter
// at a cadence that keeps the adapter's own ring non-empty. Grounded on the
// teacher's player.go write-loop goroutine, generalized into its own
// package with the spec's explicit back-off-on-error policy.
package pump

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/le-bot-team/audioengine/internal/callback"
)

// Source is the subset of the buffer controller the pump needs: how much
// is available, and how to drain a chunk of it.
type Source interface {
	Available() int
	Read(dst []float32) int
}

// Config fixes the pump's chunk size and idle-sleep cadence for one run.
type Config struct {
	// ChunkSize is engine-buffer-size x channels, in samples.
	ChunkSize int
	// Channels converts the chunk's sample count to a frame count for
	// PumpedFrames accounting.
	Channels int
	// FramesPerBuffer and SampleRate derive the idle-sleep duration per
	// spec.md §4.F: max(1, round((frames_per_buffer/2)/sample_rate*1000)) ms.
	FramesPerBuffer int
	SampleRate      int
}

func (c Config) idleSleep() time.Duration {
	ms := math.Round((float64(c.FramesPerBuffer) / 2) / float64(c.SampleRate) * 1000)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// Pump drains Source into an Adapter on its own goroutine. A Pump instance
// is single-use: construct one per Start, call Run, and call Stop (or
// StopAsync) when the engine is stopping; further Stop calls are no-ops.
type Pump struct {
	cfg     Config
	source  Source
	adapter callback.Adapter

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	pumpedFrames int64
}

// New constructs a Pump ready to Run. It does not start the goroutine.
func New(cfg Config, source Source, adapter callback.Adapter) *Pump {
	return &Pump{
		cfg:     cfg,
		source:  source,
		adapter: adapter,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run launches the pump's draining loop on a new goroutine. It returns
// immediately; callers observe completion via Stop's join or by waiting on
// Done.
func (p *Pump) Run() {
	go p.loop()
}

// Done returns a channel closed once the pump's loop has exited, which
// happens only after Stop. A panic in Send is recovered and the loop
// keeps running.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// PumpedFrames reports the cumulative frame count successfully handed to
// the adapter, monotonically non-decreasing across the pump's lifetime.
// Safe to call concurrently with the running loop.
func (p *Pump) PumpedFrames() int64 {
	return atomic.LoadInt64(&p.pumpedFrames)
}

func (p *Pump) loop() {
	defer close(p.done)

	// The scratch buffer is allocated once, before the loop, and never
	// resized: the pump is not the real-time callback itself, but it feeds
	// one, so it follows the same no-resize discipline.
	chunk := make([]float32, p.cfg.ChunkSize)

	backoff := p.cfg.idleSleep()
	const maxBackoff = 500 * time.Millisecond

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if p.source.Available() >= p.cfg.ChunkSize {
			n := p.source.Read(chunk)
			if err := p.safeSend(chunk[:n]); err != nil {
				if backoff < maxBackoff {
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
				p.sleepOrStop(backoff)
				continue
			}
			backoff = p.cfg.idleSleep()
			channels := p.cfg.Channels
			if channels <= 0 {
				channels = 1
			}
			atomic.AddInt64(&p.pumpedFrames, int64(n)/int64(channels))
		} else {
			p.sleepOrStop(backoff)
		}
	}
}

// safeSend calls adapter.Send, converting a panic into an error so the
// pump's back-off policy applies uniformly to native-library panics and
// ordinary errors alike.
func (p *Pump) safeSend(chunk []float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPumpPanic{r}
		}
	}()
	return p.adapter.Send(chunk)
}

func (p *Pump) sleepOrStop(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
	case <-t.C:
	}
}

// Stop signals the loop to exit and blocks until it does, or until
// timeout elapses, whichever comes first. It is idempotent: calling Stop
// more than once has no additional effect.
func (p *Pump) Stop(timeout time.Duration) {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-p.done:
	case <-time.After(timeout):
		// Abandon the goroutine without forcible termination; it is
		// marked background and will exit naturally on its next
		// iteration, per spec.md §4.F.
	}
}

// StopAsync runs Stop on a background goroutine and returns a channel
// closed when it completes. Cancelling the caller's wait on that channel
// does not cancel the stop itself.
func (p *Pump) StopAsync(timeout time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		p.Stop(timeout)
		close(ch)
	}()
	return ch
}

type errPumpPanic struct{ v interface{} }

func (e errPumpPanic) Error() string {
	return "pump: adapter.Send panicked"
}
