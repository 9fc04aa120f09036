package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constStreamer struct {
	l, r  float64
	calls int
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	c.calls++
	for i := range samples {
		samples[i] = [2]float64{c.l, c.r}
	}
	return len(samples), true
}

func (c *constStreamer) Err() error { return nil }

func sampleAt(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func TestStreamReaderInterleaves(t *testing.T) {
	s := &constStreamer{l: 0.25, r: -0.5}
	r := newStreamReader(s, 4, make(chan struct{}))

	buf := make([]byte, 48)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, 2, s.calls)

	for i := 0; i < 12; i += 2 {
		assert.Equal(t, float32(0.25), sampleAt(buf, i))
		assert.Equal(t, float32(-0.5), sampleAt(buf, i+1))
	}
}

func TestStreamReaderClamps(t *testing.T) {
	r := newStreamReader(&constStreamer{l: 3, r: -3}, 2, make(chan struct{}))
	buf := make([]byte, 8)
	_, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, float32(1), sampleAt(buf, 0))
	assert.Equal(t, float32(-1), sampleAt(buf, 1))
}

func TestStreamReaderStops(t *testing.T) {
	stop := make(chan struct{})
	s := &constStreamer{}
	r := newStreamReader(s, 2, stop)
	close(stop)

	n, err := r.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.calls)
}

type endingStreamer struct{}

func (endingStreamer) Stream(samples [][2]float64) (int, bool) { return 0, false }
func (endingStreamer) Err() error { return nil }

func TestStreamReaderSilenceAfterEnd(t *testing.T) {
	r := newStreamReader(endingStreamer{}, 2, make(chan struct{}))
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, make([]byte, 8), buf)
}
