package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func rms(samples []float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestFilterResponse(t *testing.T) {
	const sr = 44100.0
	tests := []struct {
		name   string
		kind   Kind
		cutoff float64
		freq   float64
		pass   bool
	}{
		{"lowpass passes low", LowPass, 1200, 100, true},
		{"lowpass stops high", LowPass, 1200, 12000, false},
		{"highpass passes high", HighPass, 700, 8000, true},
		{"highpass stops low", HighPass, 700, 40, false},
		{"bandpass passes centre", BandPass, 2500, 2500, true},
		{"bandpass stops far", BandPass, 2500, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.kind, tt.cutoff, 0, sr)
			in := sine(tt.freq, sr, 44100)
			b.Process(in)
			// skip the transient
			level := rms(in[4410:]) / (1 / math.Sqrt2)
			if tt.pass {
				assert.Greater(t, level, 0.8)
			} else {
				assert.Less(t, level, 0.2)
			}
		})
	}
}

func TestSetFrequencyMovesCutoff(t *testing.T) {
	const sr = 44100.0
	b := New(LowPass, 200, 0, sr)

	in := sine(2000, sr, 44100)
	b.Process(in)
	assert.Less(t, rms(in[4410:])/(1/math.Sqrt2), 0.2)

	b.SetFrequency(8000)
	assert.Equal(t, 8000.0, b.Frequency())
	in = sine(2000, sr, 44100)
	b.Process(in)
	assert.Greater(t, rms(in[4410:])/(1/math.Sqrt2), 0.8)
}
