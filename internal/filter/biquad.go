package filter

import "math"

type Kind int

const (
	LowPass Kind = iota
	HighPass
	BandPass
)

// Butterworth is the Q used when none is given.
const Butterworth = math.Sqrt2 / 2

type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64

	kind       Kind
	f0         float64
	q          float64
	sampleRate float64
}

func New(kind Kind, f0, q, sampleRate float64) *Biquad {
	if q <= 0 {
		q = Butterworth
	}
	b := &Biquad{
		kind:       kind,
		f0:         f0,
		q:          q,
		sampleRate: sampleRate,
	}
	b.computeCoefficients()
	return b
}

// SetFrequency moves the cutoff or centre frequency, keeping the filter
// history so a sweep does not click.
func (b *Biquad) SetFrequency(f0 float64) {
	b.f0 = f0
	b.computeCoefficients()
}

func (b *Biquad) Frequency() float64 { return b.f0 }

// computeCoefficients uses Robert Bristow-Johnson Audio EQ Cookbook formulas.
func (b *Biquad) computeCoefficients() {
	w0 := 2 * math.Pi * b.f0 / b.sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * b.q)

	var b0, b1, b2 float64
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	switch b.kind {
	case LowPass:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	case HighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	case BandPass:
		// constant 0 dB peak gain
		b0 = alpha
		b1 = 0
		b2 = -alpha
	}

	b.b0 = b0 / a0
	b.b1 = b1 / a0
	b.b2 = b2 / a0
	b.a1 = a1 / a0
	b.a2 = a2 / a0
}

func (b *Biquad) Process(samples []float64) {
	for i, x := range samples {
		samples[i] = b.Next(x)
	}
}

func (b *Biquad) Next(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2 = b.x1
	b.x1 = x
	b.y2 = b.y1
	b.y1 = y
	return y
}
