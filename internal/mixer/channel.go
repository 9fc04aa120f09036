package mixer

import (
	"github.com/agusx1211/find-the-calm/internal/tone"
)

// LayerSpec describes one layer to build at initialisation.
type LayerSpec struct {
	Name  string
	Label string
	Asset string
}

// Channel is one layer: a tone generator behind its own gain stage. Volume
// and mute are the layer's own state; the graph derives the actual gain
// target from them and drives it through RampGainTo.
type Channel struct {
	spec   LayerSpec
	gen    *tone.Generator
	gain   Param
	volume float64
	muted  bool
	buf    [][2]float64
}

func newChannel(spec LayerSpec, gen *tone.Generator, volume float64) *Channel {
	return &Channel{
		spec:   spec,
		gen:    gen,
		gain:   NewParam(0),
		volume: clamp01(volume),
	}
}

func (c *Channel) Name() string { return c.spec.Name }

func (c *Channel) SetVolume(v float64) { c.volume = clamp01(v) }

func (c *Channel) SetMuted(muted bool) { c.muted = muted }

func (c *Channel) State() LayerState {
	return LayerState{Volume: c.volume, Muted: c.muted}
}

// RampGainTo moves the output gain to target over the given number of samples.
func (c *Channel) RampGainTo(target float64, samples int) {
	c.gain.RampTo(clamp01(target), samples)
}

func (c *Channel) GainTarget() float64 { return c.gain.Target() }

func (c *Channel) UsingFallback() bool { return c.gen.UsingFallback() }

// mixInto adds the channel's gained signal to out.
func (c *Channel) mixInto(out [][2]float64) {
	if cap(c.buf) < len(out) {
		c.buf = make([][2]float64, len(out))
	}
	buf := c.buf[:len(out)]
	c.gen.Stream(buf)
	for i := range out {
		g := c.gain.Next()
		out[i][0] += buf[i][0] * g
		out[i][1] += buf[i][1] * g
	}
}

func (c *Channel) stop() {
	c.gen.Stop()
}
