// Package bufferpool provides a bounded pool of fixed-size float32 scratch
// buffers so the real-time audio path can avoid allocating.
package bufferpool

import "sync"

// Pool hands out []float32 slices of a fixed size, reusing returned ones up
// to a maximum population. Slices returned by Rent are not zero-initialized.
type Pool struct {
	mu       sync.Mutex
	free     [][]float32
	size     int
	max      int
	inFlight int
}

// New creates a pool of buffers of the given sample size. initial buffers
// are pre-allocated up front; max bounds how many buffers the pool will
// ever retain (further Rent calls still succeed by allocating fresh
// buffers, but Return will discard once the pool is at max).
func New(size, initial, max int) *Pool {
	if size <= 0 {
		size = 1
	}
	if max < initial {
		max = initial
	}
	p := &Pool{
		size: size,
		max:  max,
	}
	p.free = make([][]float32, 0, initial)
	for i := 0; i < initial; i++ {
		p.free = append(p.free, make([]float32, size))
	}
	return p
}

// Rent returns a buffer of the pool's configured size, either reused from
// the free list or freshly allocated if the free list is empty.
func (p *Pool) Rent() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.inFlight++
		return buf
	}
	p.inFlight++
	return make([]float32, p.size)
}

// Return puts buf back into the pool for reuse. A buffer whose length
// differs from the pool's configured size is rejected and discarded.
// Above the configured maximum population, returned buffers are likewise
// discarded rather than retained.
func (p *Pool) Return(buf []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight > 0 {
		p.inFlight--
	}
	if len(buf) != p.size {
		return
	}
	if len(p.free) >= p.max {
		return
	}
	p.free = append(p.free, buf)
}

// Size returns the configured sample size of buffers managed by this pool.
func (p *Pool) Size() int {
	return p.size
}
