package tone

import (
	"math"

	"github.com/agusx1211/find-the-calm/internal/filter"
	"github.com/agusx1211/find-the-calm/internal/noise"
	"github.com/gopxl/beep/v2"
)

// noiseLevel keeps looped noise well under full scale.
const noiseLevel = 0.25

type noiseProfile struct {
	color   noise.Color
	seconds float64
	kind    filter.Kind
	cutoff  float64
	q       float64
	// slow amplitude movement, 0 disables it
	wobbleHz    float64
	wobbleDepth float64
	// cutoff swings by sweepRange Hz either side, 0 disables it
	sweepHz    float64
	sweepRange float64
}

var noiseProfiles = map[string]noiseProfile{
	"rain": {color: noise.White, seconds: 2, kind: filter.HighPass, cutoff: 700},
	"wind": {
		color: noise.White, seconds: 4, kind: filter.LowPass, cutoff: 1200,
		wobbleHz: 0.15, wobbleDepth: 0.5,
		sweepHz: 0.05, sweepRange: 500,
	},
	"waves":  {color: noise.Brown, seconds: 4, kind: filter.LowPass, cutoff: 500, wobbleHz: 0.08, wobbleDepth: 0.6},
	"stream": {color: noise.Pink, seconds: 3, kind: filter.BandPass, cutoff: 2500, q: 0.8},
}

// sweepBlock is how many samples share one set of swept coefficients.
const sweepBlock = 64

// fallbackFor picks the substitute signal for a layer. It cannot fail.
func fallbackFor(layer string, sr beep.SampleRate) (beep.Streamer, Source) {
	if p, ok := noiseProfiles[layer]; ok {
		return newNoiseBed(layer, p, sr), SourceNoise
	}
	return newOscillatorBank(sr), SourceOscillators
}

type lfo struct {
	phase float64
	step  float64
	depth float64
}

func newLFO(hz, depth float64, sr beep.SampleRate) *lfo {
	return &lfo{step: hz / float64(sr), depth: depth}
}

// next returns a gain in [1-depth, 1].
func (l *lfo) next() float64 {
	v := 1 - l.depth/2 + l.depth/2*math.Sin(2*math.Pi*l.phase)
	l.phase += l.step
	if l.phase >= 1 {
		l.phase--
	}
	return v
}

// nextN is next for the first of n samples, then skips the rest.
func (l *lfo) nextN(n int) float64 {
	v := l.next()
	l.phase = math.Mod(l.phase+l.step*float64(n-1), 1)
	return v
}

type noiseBed struct {
	buf    []float64
	pos    int
	mono   []float64
	filter *filter.Biquad
	wobble *lfo

	sweep      *lfo
	cutoff     float64
	sweepRange float64
}

func newNoiseBed(layer string, p noiseProfile, sr beep.SampleRate) *noiseBed {
	gen := noise.NewSeededGenerator(int(sr), layer)
	n := &noiseBed{
		buf:    gen.Buffer(p.color, p.seconds, noiseLevel),
		mono:   make([]float64, sweepBlock),
		filter: filter.New(p.kind, p.cutoff, p.q, float64(sr)),
		cutoff: p.cutoff,
	}
	if p.wobbleHz > 0 {
		n.wobble = newLFO(p.wobbleHz, p.wobbleDepth, sr)
	}
	if p.sweepHz > 0 {
		n.sweep = newLFO(p.sweepHz, 1, sr)
		n.sweepRange = p.sweepRange
	}
	return n
}

func (n *noiseBed) Stream(samples [][2]float64) (int, bool) {
	for done := 0; done < len(samples); {
		block := min(len(samples)-done, sweepBlock)
		if n.sweep != nil {
			// sweep.nextN is in [0, 1]
			n.filter.SetFrequency(n.cutoff + n.sweepRange*(2*n.sweep.nextN(block)-1))
		}

		mono := n.mono[:block]
		for i := range mono {
			mono[i] = n.buf[n.pos]
			n.pos++
			if n.pos == len(n.buf) {
				n.pos = 0
			}
		}
		n.filter.Process(mono)

		for i, y := range mono {
			if n.wobble != nil {
				y *= n.wobble.next()
			}
			samples[done+i][0], samples[done+i][1] = y, y
		}
		done += block
	}
	return len(samples), true
}

func (n *noiseBed) Err() error { return nil }

type waveform int

const (
	sine waveform = iota
	triangle
	sawtooth
)

type oscillator struct {
	shape waveform
	phase float64
	step  float64
	level float64
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		var v float64
		switch o.shape {
		case triangle:
			v = 4*math.Abs(o.phase-0.5) - 1
		case sawtooth:
			v = 2*o.phase - 1
		default:
			v = math.Sin(2 * math.Pi * o.phase)
		}
		v *= o.level
		samples[i][0], samples[i][1] = v, v
		o.phase += o.step
		if o.phase >= 1 {
			o.phase--
		}
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

var bankVoices = []struct {
	shape waveform
	freq  float64
	cents float64
}{
	{triangle, 220, -4},
	{sine, 262, 3},
	{sawtooth, 330, -2},
}

const (
	bankGain   = 0.4
	bankCutoff = 1600
)

type oscillatorBank struct {
	mix    beep.Streamer
	filter *filter.Biquad
	motion *lfo
}

func newOscillatorBank(sr beep.SampleRate) *oscillatorBank {
	voices := make([]beep.Streamer, 0, len(bankVoices))
	for _, v := range bankVoices {
		freq := v.freq * math.Pow(2, v.cents/1200)
		voices = append(voices, &oscillator{
			shape: v.shape,
			step:  freq / float64(sr),
			level: 1 / float64(len(bankVoices)),
		})
	}
	return &oscillatorBank{
		mix:    beep.Mix(voices...),
		filter: filter.New(filter.LowPass, bankCutoff, 0, float64(sr)),
		motion: newLFO(0.07, 0.4, sr),
	}
}

func (b *oscillatorBank) Stream(samples [][2]float64) (int, bool) {
	n, _ := b.mix.Stream(samples)
	for i := range samples[:n] {
		y := b.filter.Next(samples[i][0]) * bankGain * b.motion.next()
		samples[i][0], samples[i][1] = y, y
	}
	return n, true
}

func (b *oscillatorBank) Err() error { return nil }
