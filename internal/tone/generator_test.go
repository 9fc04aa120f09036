package tone

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = beep.SampleRate(8000)

// finiteTone streams n frames of a 440 Hz sine.
type finiteTone struct {
	n, pos int
	sr     beep.SampleRate
}

func (f *finiteTone) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= f.n {
		return 0, false
	}
	i := 0
	for ; i < len(samples) && f.pos < f.n; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(f.pos)/float64(f.sr))
		samples[i][0], samples[i][1] = v, v
		f.pos++
	}
	return i, true
}

func (f *finiteTone) Err() error { return nil }

func writeWAV(t *testing.T, frames int, sr beep.SampleRate) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: sr, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, &finiteTone{n: frames, sr: sr}, format))
	return p
}

func energy(samples [][2]float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s[0]*s[0] + s[1]*s[1]
	}
	return sum
}

func render(g *Generator, frames int) [][2]float64 {
	buf := make([][2]float64, frames)
	g.Stream(buf)
	return buf
}

func TestNewFallsBackOnInvalidAsset(t *testing.T) {
	tests := []struct {
		name   string
		layer  string
		asset  string
		source Source
	}{
		{"missing rain file", "rain", "/nonexistent/rain.mp3", SourceNoise},
		{"missing wind file", "wind", "/nonexistent/wind.mp3", SourceNoise},
		{"missing stream file", "stream", "/nonexistent/stream.mp3", SourceNoise},
		{"unknown layer", "piano", "/nonexistent/piano.mp3", SourceOscillators},
		{"unsupported format", "rain", "rain.flac", SourceNoise},
		{"empty reference", "waves", "", SourceNoise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(context.Background(), tt.layer, tt.asset, Options{SampleRate: testRate})
			require.NotNil(t, g)
			assert.True(t, g.UsingFallback())
			assert.Equal(t, tt.source, g.Source())

			assert.NotPanics(t, func() {
				g.Start()
				assert.Greater(t, energy(render(g, 4000)), 0.0)
				g.Stop()
			})
		})
	}
}

func TestOpenerFailureFallsBack(t *testing.T) {
	opener := func(ctx context.Context, ref string) (io.ReadCloser, error) {
		return nil, errors.New("network down")
	}
	g := New(context.Background(), "rain", "https://example.invalid/rain.mp3", Options{SampleRate: testRate, Open: opener})
	assert.True(t, g.UsingFallback())
}

func TestFallbackIsDeterministic(t *testing.T) {
	for _, layer := range []string{"rain", "wind", "piano"} {
		a := New(context.Background(), layer, "missing.mp3", Options{SampleRate: testRate})
		b := New(context.Background(), layer, "missing.mp3", Options{SampleRate: testRate})
		a.Start()
		b.Start()
		assert.Equal(t, render(a, 1024), render(b, 1024), layer)
	}
}

func TestWindCutoffSweeps(t *testing.T) {
	bed := newNoiseBed("wind", noiseProfiles["wind"], testRate)
	lo, hi := math.Inf(1), math.Inf(-1)
	buf := make([][2]float64, 500)
	// 20 seconds covers one full sweep period
	for range 20 * int(testRate) / len(buf) {
		bed.Stream(buf)
		f := bed.filter.Frequency()
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	assert.InDelta(t, 700, lo, 20)
	assert.InDelta(t, 1700, hi, 20)
}

func TestStreamBedIsBandLimited(t *testing.T) {
	bed := newNoiseBed("stream", noiseProfiles["stream"], testRate)
	out := make([][2]float64, 4000)
	bed.Stream(out)
	assert.Greater(t, energy(out), 0.0)
	for _, s := range out {
		assert.Equal(t, s[0], s[1])
		assert.LessOrEqual(t, math.Abs(s[0]), 1.0)
	}
}

func TestDecodedAssetLoops(t *testing.T) {
	path := writeWAV(t, 800, testRate)

	g := New(context.Background(), "rain", path, Options{SampleRate: testRate})
	require.False(t, g.UsingFallback())
	assert.Equal(t, SourceAsset, g.Source())

	g.Start()
	out := render(g, 4000)
	// 800 frames looped five times: the tail must still carry signal
	assert.Greater(t, energy(out[3200:]), 0.0)
	assert.InDelta(t, out[0][0], out[800][0], 1e-3)
}

func TestDecodedAssetIsResampled(t *testing.T) {
	path := writeWAV(t, 400, 4000)

	g := New(context.Background(), "rain", path, Options{SampleRate: testRate})
	require.False(t, g.UsingFallback())
	g.Start()
	assert.Greater(t, energy(render(g, 2000)), 0.0)
}

func TestEndedAssetKeepsSource(t *testing.T) {
	path := writeWAV(t, 800, testRate)
	g := New(context.Background(), "rain", path, Options{SampleRate: testRate})
	require.Equal(t, SourceAsset, g.Source())
	g.source = &finiteTone{n: 100, sr: testRate}
	g.Start()

	buf := make([][2]float64, 400)
	n, ok := g.Stream(buf)
	assert.Equal(t, 400, n)
	assert.True(t, ok)
	assert.Greater(t, energy(buf[:100]), 0.0)
	assert.Zero(t, energy(buf[100:]))

	n, ok = g.Stream(buf)
	assert.Equal(t, 400, n)
	assert.True(t, ok)
	assert.Zero(t, energy(buf))
	assert.Equal(t, SourceAsset, g.Source())
	assert.False(t, g.UsingFallback())
}

func TestEmptyAssetFallsBack(t *testing.T) {
	path := writeWAV(t, 0, testRate)

	g := New(context.Background(), "rain", path, Options{SampleRate: testRate})
	assert.True(t, g.UsingFallback())
}

func TestStartStopLifecycle(t *testing.T) {
	g := New(context.Background(), "piano", "missing.mp3", Options{SampleRate: testRate})

	// silent before start
	buf := make([][2]float64, 256)
	n, ok := g.Stream(buf)
	assert.Equal(t, 256, n)
	assert.True(t, ok)
	assert.Zero(t, energy(buf))

	g.Start()
	g.Start()
	assert.True(t, g.Running())
	assert.Greater(t, energy(render(g, 2000)), 0.0)

	g.Stop()
	g.Stop()
	assert.False(t, g.Running())
	n, ok = g.Stream(buf)
	assert.Equal(t, 256, n)
	assert.False(t, ok)
	assert.Zero(t, energy(buf))

	// a stopped generator stays stopped
	g.Start()
	assert.False(t, g.Running())
}

func TestStopBeforeStart(t *testing.T) {
	g := New(context.Background(), "wind", "missing.mp3", Options{SampleRate: testRate})
	assert.NotPanics(t, g.Stop)
	assert.False(t, g.Running())
}
