package mixer

import "math"

// LayerState is the user-intended setting of one layer.
type LayerState struct {
	Volume float64
	Muted  bool
}

// State is the canonical mixer state. Effective gains are always derived from
// it and never stored.
type State struct {
	MasterVolume float64
	Solo         string
	Layers       map[string]LayerState
}

func (s State) Clone() State {
	c := State{MasterVolume: s.MasterVolume, Solo: s.Solo}
	if s.Layers != nil {
		c.Layers = make(map[string]LayerState, len(s.Layers))
		for k, v := range s.Layers {
			c.Layers[k] = v
		}
	}
	return c
}

// Policy holds the gain levels used by the solo rule.
type Policy struct {
	SoloLevel   float64
	DuckedLevel float64
}

// EffectiveGain is the gain a layer should converge to given the solo
// selection. A soloed layer plays at SoloLevel unless muted; every other
// layer is held at DuckedLevel while a solo is active.
func EffectiveGain(layer string, l LayerState, solo string, p Policy) float64 {
	switch {
	case solo != "" && solo != layer:
		return p.DuckedLevel
	case l.Muted:
		return 0
	case solo == layer:
		return p.SoloLevel
	default:
		return l.Volume
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
