// Package ring implements a lock-free single-producer/single-consumer
// ring buffer of interleaved float32 audio samples.
package ring

import "sync/atomic"

// Buffer is a lock-free SPSC ring buffer of float32 samples.
//
// Exactly one goroutine may call Write (the producer) and exactly one
// goroutine may call Read (the consumer); the two may run concurrently.
// w and r are cumulative sample counts, never reset modulo capacity, so
// wraparound of the 64-bit counters themselves is not observable.
type Buffer struct {
	w int64 // write cursor, owned by the producer
	r int64 // read cursor, owned by the consumer

	buf  []float32
	size int64
}

// New creates a ring buffer that holds capacity samples.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		buf:  make([]float32, capacity),
		size: int64(capacity),
	}
}

// Write copies min(len(samples), FreeSpace()) samples into the buffer in
// order and returns the number actually written. It never allocates,
// blocks, or yields, and is safe to call concurrently with one Read call.
func (b *Buffer) Write(samples []float32) int {
	r := atomic.LoadInt64(&b.r)
	w := b.w // producer owns w

	free := b.size - (w - r)
	n := int64(len(samples))
	if n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}

	pos := w % b.size
	first := n
	if rem := b.size - pos; rem < first {
		first = rem
	}
	copy(b.buf[pos:pos+first], samples[:first])
	if first < n {
		copy(b.buf[0:n-first], samples[first:n])
	}

	// Publish the new write position after the copies above are visible.
	atomic.StoreInt64(&b.w, w+n)
	return int(n)
}

// Read copies min(len(dst), Available()) samples into dst in order and
// returns the number actually read. It never allocates, blocks, or
// yields, and is safe to call concurrently with one Write call.
func (b *Buffer) Read(dst []float32) int {
	w := atomic.LoadInt64(&b.w)
	r := b.r // consumer owns r

	avail := w - r
	n := int64(len(dst))
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}

	pos := r % b.size
	first := n
	if rem := b.size - pos; rem < first {
		first = rem
	}
	copy(dst[:first], b.buf[pos:pos+first])
	if first < n {
		copy(dst[first:n], b.buf[0:n-first])
	}

	atomic.StoreInt64(&b.r, r+n)
	return int(n)
}

// Clear discards all unread samples by advancing the read cursor to the
// write cursor. Not safe against a concurrent Write or Read; the caller
// must quiesce both peers first.
func (b *Buffer) Clear() {
	atomic.StoreInt64(&b.r, atomic.LoadInt64(&b.w))
}

// Capacity returns the fixed sample capacity of the buffer.
func (b *Buffer) Capacity() int {
	return int(b.size)
}

// Available returns the number of samples ready to be read.
func (b *Buffer) Available() int {
	w := atomic.LoadInt64(&b.w)
	r := atomic.LoadInt64(&b.r)
	return int(w - r)
}

// FreeSpace returns the number of samples that can be written before the
// buffer is full.
func (b *Buffer) FreeSpace() int {
	return int(b.size) - b.Available()
}
