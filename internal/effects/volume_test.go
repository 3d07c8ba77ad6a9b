package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeScalesBySetLevel(t *testing.T) {
	v := NewVolume()
	v.SetLevel(0.5)

	buf := []float32{1, -1, 0.4}
	v.Process(buf, len(buf))
	assert.InDelta(t, 0.5, buf[0], 1e-6)
	assert.InDelta(t, -0.5, buf[1], 1e-6)
	assert.InDelta(t, 0.2, buf[2], 1e-6)
}

func TestVolumeLevelClamps(t *testing.T) {
	v := NewVolume()
	v.SetLevel(-1)
	assert.Equal(t, 0.0, v.Level())
	v.SetLevel(100)
	assert.Equal(t, 4.0, v.Level())
}

func TestVolumeDisabledIsNoOp(t *testing.T) {
	v := NewVolume()
	v.SetEnabled(false)
	buf := []float32{1, 2, 3}
	orig := append([]float32(nil), buf...)
	v.Process(buf, len(buf))
	assert.Equal(t, orig, buf)
}
