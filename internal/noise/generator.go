package noise

import (
	"hash/fnv"
	"math/rand"
)

type Color string

const (
	White Color = "white"
	Pink  Color = "pink"
	Brown Color = "brown"
)

type Generator struct {
	sampleRate int
	rng        *rand.Rand
	pink       [7]float64
	brown      float64
}

// NewSeededGenerator returns a generator whose output depends only on seed,
// so the same layer always synthesises the same buffer.
func NewSeededGenerator(sampleRate int, seed string) *Generator {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return &Generator{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(int64(h.Sum64()))),
	}
}

func (g *Generator) Generate(color Color, samples int, volume float64) []float64 {
	switch color {
	case Pink:
		return g.generatePink(samples, volume)
	case Brown:
		return g.generateBrown(samples, volume)
	default:
		return g.generateWhite(samples, volume)
	}
}

// Buffer renders a mono buffer of the given length in seconds, at least one
// sample long, meant to be looped.
func (g *Generator) Buffer(color Color, seconds float64, volume float64) []float64 {
	n := int(seconds * float64(g.sampleRate))
	if n < 1 {
		n = 1
	}
	return g.Generate(color, n, volume)
}

func (g *Generator) generateWhite(samples int, volume float64) []float64 {
	result := make([]float64, samples)
	for i := range samples {
		result[i] = (g.rng.Float64()*2 - 1) * volume
	}
	return result
}

func (g *Generator) generatePink(samples int, volume float64) []float64 {
	result := make([]float64, samples)
	coeffs := [7]float64{0.1294, 0.1875, 0.2414, 0.3026, 0.3830, 0.4962, 0.7195}
	state := &g.pink

	for i := range samples {
		white := g.rng.Float64()*2 - 1
		sum := 0.0
		for k := range state {
			state[k] = coeffs[k]*(white-state[k]) + state[k]
			sum += state[k]
		}
		result[i] = sum / 2.5 * volume
	}
	return result
}

func (g *Generator) generateBrown(samples int, volume float64) []float64 {
	result := make([]float64, samples)
	for i := range samples {
		white := g.rng.Float64()*2 - 1
		g.brown = (g.brown + 0.02*white) / 1.02
		result[i] = g.brown * 3.5 * volume
	}
	return result
}
