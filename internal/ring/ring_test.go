package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(16)
	in := []float32{1, 2, 3, 4, 5}
	n := b.Write(in)
	require.Equal(t, 5, n)

	out := make([]float32, 5)
	n = b.Read(out)
	require.Equal(t, 5, n)
	assert.Equal(t, in, out)
}

func TestWriteTruncatesAtCapacity(t *testing.T) {
	b := New(4)
	n := b.Write([]float32{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, b.Available())
	assert.Equal(t, 0, b.FreeSpace())
}

func TestAvailableFreeSpaceInvariant(t *testing.T) {
	b := New(32)
	for i := 0; i < 10; i++ {
		b.Write(make([]float32, 5))
		read := make([]float32, 3)
		b.Read(read)
		assert.Equal(t, b.Capacity(), b.Available()+b.FreeSpace())
	}
}

func TestWriteReturnsMinOfRequestAndFree(t *testing.T) {
	b := New(10)
	b.Write(make([]float32, 7)) // 3 free remain
	n := b.Write(make([]float32, 5))
	assert.Equal(t, 3, n)
	assert.Equal(t, 10, b.Available())
}

func TestReadShorterThanRequestedIsNotAnError(t *testing.T) {
	b := New(10)
	b.Write([]float32{1, 2})
	dst := make([]float32, 10)
	n := b.Read(dst)
	assert.Equal(t, 2, n)
}

func TestClearDiscardsUnread(t *testing.T) {
	b := New(10)
	b.Write([]float32{1, 2, 3})
	b.Clear()
	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 10, b.FreeSpace())
}

// TestConcurrentProducerConsumerPreservesOrder exercises a single
// producer goroutine racing a single consumer goroutine and checks that
// every value the consumer observes is a prefix of what was produced, in
// order, with no duplication.
func TestConcurrentProducerConsumerPreservesOrder(t *testing.T) {
	b := New(256)
	const total = 200_000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		chunk := make([]float32, 64)
		next := float32(0)
		written := 0
		for written < total {
			for i := range chunk {
				chunk[i] = next
				next++
			}
			n := b.Write(chunk)
			written += n
			if n < len(chunk) {
				next -= float32(len(chunk) - n)
			}
		}
	}()

	var mismatch bool
	go func() {
		defer wg.Done()
		chunk := make([]float32, 64)
		expect := float32(0)
		read := 0
		for read < total {
			n := b.Read(chunk)
			for i := 0; i < n; i++ {
				if chunk[i] != expect {
					mismatch = true
				}
				expect++
			}
			read += n
		}
	}()

	wg.Wait()
	assert.False(t, mismatch, "consumer observed out-of-order or duplicated samples")
}
