// Package tone produces the continuous signal for a single ambient layer.
//
// A Generator first tries to decode the layer's media asset into a looping
// in-memory buffer. When the asset cannot be resolved or decoded it falls back
// to procedural synthesis chosen by the layer's name; construction never fails.
package tone

import (
	"context"

	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
)

// Source describes what a Generator is actually playing.
type Source string

const (
	SourceAsset       Source = "asset"
	SourceNoise       Source = "noise"
	SourceOscillators Source = "oscillators"
)

type Options struct {
	SampleRate beep.SampleRate
	// Open resolves an asset reference. Defaults to local files and http(s) URLs.
	Open Opener
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.Open == nil {
		o.Open = DefaultOpener
	}
	return o
}

// Generator is not safe for concurrent use; the mixer graph serialises access.
type Generator struct {
	layer      string
	asset      string
	sampleRate beep.SampleRate

	source  beep.Streamer
	kind    Source
	started bool
	stopped bool
	drained bool

	log *logrus.Entry
}

var _ beep.Streamer = (*Generator)(nil)

// New builds the generator for layer. ctx bounds asset resolution only.
func New(ctx context.Context, layer, asset string, opts Options) *Generator {
	opts = opts.withDefaults()
	g := &Generator{
		layer:      layer,
		asset:      asset,
		sampleRate: opts.SampleRate,
		log: logrus.WithFields(logrus.Fields{
			"component": "tone",
			"layer":     layer,
		}),
	}

	s, err := loadAsset(ctx, asset, opts)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"asset": asset,
			"error": err.Error(),
		}).Warn("Asset unavailable, using fallback synthesis")
		g.useFallback()
		return g
	}

	g.source = s
	g.kind = SourceAsset
	g.log.WithField("asset", asset).Debug("Asset decoded")
	return g
}

func (g *Generator) useFallback() {
	g.source, g.kind = fallbackFor(g.layer, g.sampleRate)
}

func (g *Generator) Layer() string { return g.layer }

func (g *Generator) Source() Source { return g.kind }

func (g *Generator) UsingFallback() bool { return g.kind != SourceAsset }

// Start begins generation. Calling it again, or after Stop, has no effect.
func (g *Generator) Start() {
	if g.started || g.stopped {
		return
	}
	g.started = true
}

// Stop halts generation and releases the source. Safe before Start and safe to repeat.
func (g *Generator) Stop() {
	if g.stopped {
		return
	}
	g.stopped = true
	g.source = nil
}

func (g *Generator) Running() bool { return g.started && !g.stopped }

// Stream fills samples with the layer's signal, or silence when not running.
// ok turns false once the generator has been stopped.
func (g *Generator) Stream(samples [][2]float64) (n int, ok bool) {
	if !g.Running() || g.source == nil {
		clear(samples)
		return len(samples), !g.stopped
	}

	// the source chosen in New is kept for the generator's lifetime; a source
	// that runs short is padded with silence
	n, ok = g.source.Stream(samples)
	if !ok || n < len(samples) {
		clear(samples[n:])
		if !g.drained {
			g.drained = true
			g.log.WithField("source", g.kind).Warn("Layer source ended early, padding with silence")
		}
	}
	return len(samples), true
}

func (g *Generator) Err() error {
	return nil
}
