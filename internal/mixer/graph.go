package mixer

import (
	"context"
	"sync"
	"time"

	"github.com/agusx1211/find-the-calm/internal/tone"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
)

// Output is the device the graph renders into.
type Output interface {
	Play(s beep.Streamer)
	Close() error
}

// OutputFactory opens the output device. An error means the platform has no
// usable device at all.
type OutputFactory func(sampleRate beep.SampleRate) (Output, error)

type Options struct {
	SampleRate    beep.SampleRate
	RampTime      time.Duration
	SoloLevel     float64
	DuckedLevel   float64
	DefaultVolume float64
	MasterVolume  float64
	// AssetTimeout bounds how long one layer may spend resolving its asset.
	AssetTimeout time.Duration
	Open         tone.Opener
	// Sends are mixed in after the master stage, e.g. the speech bus.
	Sends []beep.Streamer
}

func DefaultOptions() Options {
	return Options{
		SampleRate:    44100,
		RampTime:      150 * time.Millisecond,
		SoloLevel:     1.0,
		DuckedLevel:   0.12,
		DefaultVolume: 0.7,
		MasterVolume:  1.0,
		AssetTimeout:  3 * time.Second,
	}
}

// LayerInfo is a render-ready view of one layer.
type LayerInfo struct {
	Name          string
	Label         string
	Volume        float64
	Muted         bool
	UsingFallback bool
	Target        float64
}

// Graph owns the layer channels and the master stage. All mutations compute
// every effective target from the full current state before issuing ramps,
// under one lock shared with the render callback.
type Graph struct {
	mu sync.Mutex

	opts      Options
	policy    Policy
	newOutput OutputFactory
	out       Output

	initialized  bool
	master       Param
	masterVolume float64
	solo         string
	channels     map[string]*Channel
	order        []string
	// held is state supplied before Initialize, applied to the fresh channels.
	held    *State
	scratch [][2]float64

	log *logrus.Entry
}

var _ beep.Streamer = (*Graph)(nil)

func NewGraph(opts Options, newOutput OutputFactory) *Graph {
	return &Graph{
		opts:         opts,
		policy:       Policy{SoloLevel: opts.SoloLevel, DuckedLevel: opts.DuckedLevel},
		newOutput:    newOutput,
		masterVolume: clamp01(opts.MasterVolume),
		channels:     make(map[string]*Channel),
		log:          logrus.WithField("component", "mixer"),
	}
}

func (g *Graph) rampSamples() int {
	return g.opts.SampleRate.N(g.opts.RampTime)
}

// Initialize opens the output device, builds and starts one channel per layer
// and routes them through the master stage. A second call is a no-op. The
// only error is an *OutputError.
//
// The device and the layer assets are resolved without holding the graph
// lock, so state queries and held mutations stay responsive while a slow
// device or asset source is being waited on.
func (g *Graph) Initialize(ctx context.Context, specs []LayerSpec) error {
	g.mu.Lock()
	initialized, newOutput := g.initialized, g.newOutput
	g.mu.Unlock()
	if initialized {
		return nil
	}

	if newOutput == nil {
		return &OutputError{}
	}
	out, err := newOutput(g.opts.SampleRate)
	if err != nil {
		g.log.WithField("error", err.Error()).Error("Audio output unavailable")
		return &OutputError{Err: err}
	}

	toneOpts := tone.Options{SampleRate: g.opts.SampleRate, Open: g.opts.Open}
	channels := make(map[string]*Channel, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		if _, dup := channels[spec.Name]; dup || spec.Name == "" {
			g.log.WithField("layer", spec.Name).Error("Skipping duplicate or unnamed layer")
			continue
		}
		gen := g.newGenerator(ctx, spec, toneOpts)
		gen.Start()
		channels[spec.Name] = newChannel(spec, gen, g.opts.DefaultVolume)
		order = append(order, spec.Name)
	}

	g.mu.Lock()
	if g.initialized {
		// lost a race with a concurrent Initialize
		g.mu.Unlock()
		for _, ch := range channels {
			ch.stop()
		}
		return out.Close()
	}
	g.channels = channels
	g.order = order
	g.master = NewParam(g.masterVolume)
	if g.held != nil {
		held := *g.held
		// master changes made while held win over the held snapshot
		held.MasterVolume = g.masterVolume
		g.applyLocked(held)
		g.held = nil
	}
	g.rampAllLocked()

	g.out = out
	g.initialized = true
	g.mu.Unlock()

	g.log.WithField("layers", len(order)).Info("Mixer initialized")
	out.Play(g)
	return nil
}

func (g *Graph) newGenerator(ctx context.Context, spec LayerSpec, opts tone.Options) *tone.Generator {
	if g.opts.AssetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.AssetTimeout)
		defer cancel()
	}
	return tone.New(ctx, spec.Name, spec.Asset, opts)
}

func (g *Graph) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

func (g *Graph) SetMasterVolume(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masterVolume = clamp01(v)
	if g.initialized {
		g.master.RampTo(g.masterVolume, g.rampSamples())
	}
}

func (g *Graph) MasterVolume() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.masterVolume
}

func (g *Graph) SetLayerVolume(name string, v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channelLocked(name, "set_layer_volume")
	if !ok {
		return
	}
	ch.SetVolume(v)
	g.rampAllLocked()
}

func (g *Graph) SetLayerMuted(name string, muted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channelLocked(name, "set_layer_muted")
	if !ok {
		return
	}
	ch.SetMuted(muted)
	g.rampAllLocked()
}

// ToggleSolo solos name, or clears the solo if name already holds it.
func (g *Graph) ToggleSolo(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channelLocked(name, "toggle_solo"); !ok {
		return
	}
	if g.solo == name {
		g.solo = ""
	} else {
		g.solo = name
	}
	g.rampAllLocked()
}

func (g *Graph) Solo() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.solo
}

// channelLocked resolves a layer name. Unknown names come from UI wiring
// mistakes, so they are logged and otherwise ignored.
func (g *Graph) channelLocked(name, op string) (*Channel, bool) {
	ch, ok := g.channels[name]
	if !ok {
		g.log.WithFields(logrus.Fields{
			"layer": name,
			"op":    op,
		}).Error("Unknown layer reference")
	}
	return ch, ok
}

func (g *Graph) rampAllLocked() {
	targets := make([]float64, len(g.order))
	for i, name := range g.order {
		targets[i] = EffectiveGain(name, g.channels[name].State(), g.solo, g.policy)
	}
	n := g.rampSamples()
	for i, name := range g.order {
		g.channels[name].RampGainTo(targets[i], n)
	}
}

// LayerTarget returns the gain the named layer is converging to.
func (g *Graph) LayerTarget(name string) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[name]
	if !ok {
		return 0, false
	}
	return ch.GainTarget(), true
}

func (g *Graph) Layers() []LayerInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	infos := make([]LayerInfo, 0, len(g.order))
	for _, name := range g.order {
		ch := g.channels[name]
		infos = append(infos, LayerInfo{
			Name:          name,
			Label:         ch.spec.Label,
			Volume:        ch.volume,
			Muted:         ch.muted,
			UsingFallback: ch.UsingFallback(),
			Target:        ch.GainTarget(),
		})
	}
	return infos
}

// State snapshots master, solo and per-layer settings. Before initialisation
// it reports whatever state is being held for the first Initialize.
func (g *Graph) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.initialized && g.held != nil {
		s := g.held.Clone()
		s.MasterVolume = g.masterVolume
		return s
	}
	s := State{
		MasterVolume: g.masterVolume,
		Solo:         g.solo,
		Layers:       make(map[string]LayerState, len(g.order)),
	}
	for _, name := range g.order {
		s.Layers[name] = g.channels[name].State()
	}
	return s
}

// Apply sets master, then per-layer volume and mute, then solo, and only then
// ramps every layer once. Before Initialize the state is held instead.
func (g *Graph) Apply(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.masterVolume = clamp01(s.MasterVolume)
	if !g.initialized {
		held := s.Clone()
		g.held = &held
		return
	}
	g.applyLocked(s)
	g.rampAllLocked()
}

func (g *Graph) applyLocked(s State) {
	g.masterVolume = clamp01(s.MasterVolume)
	g.master.RampTo(g.masterVolume, g.rampSamples())

	for name, ls := range s.Layers {
		ch, ok := g.channels[name]
		if !ok {
			g.log.WithField("layer", name).Debug("Ignoring state for unknown layer")
			continue
		}
		ch.SetVolume(ls.Volume)
		ch.SetMuted(ls.Muted)
	}

	g.solo = ""
	if _, ok := g.channels[s.Solo]; ok {
		g.solo = s.Solo
	}
}

// Teardown stops every generator and closes the output. The current state is
// kept and re-applied by the next Initialize. Safe to call at any time.
func (g *Graph) Teardown() error {
	g.mu.Lock()
	if !g.initialized {
		g.mu.Unlock()
		return nil
	}

	held := State{
		MasterVolume: g.masterVolume,
		Solo:         g.solo,
		Layers:       make(map[string]LayerState, len(g.order)),
	}
	for _, name := range g.order {
		ch := g.channels[name]
		held.Layers[name] = ch.State()
		ch.stop()
	}
	g.held = &held
	g.channels = make(map[string]*Channel)
	g.order = nil
	g.solo = ""
	g.initialized = false
	out := g.out
	g.out = nil
	g.mu.Unlock()

	g.log.Info("Mixer torn down")
	return out.Close()
}

// Stream renders the mix. It is called from the output device's goroutine.
func (g *Graph) Stream(samples [][2]float64) (n int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	clear(samples)
	if !g.initialized {
		return len(samples), true
	}

	for _, name := range g.order {
		g.channels[name].mixInto(samples)
	}
	for i := range samples {
		m := g.master.Next()
		samples[i][0] *= m
		samples[i][1] *= m
	}

	if len(g.opts.Sends) > 0 {
		if cap(g.scratch) < len(samples) {
			g.scratch = make([][2]float64, len(samples))
		}
		scratch := g.scratch[:len(samples)]
		for _, s := range g.opts.Sends {
			clear(scratch)
			sn, _ := s.Stream(scratch)
			for i := range scratch[:sn] {
				samples[i][0] += scratch[i][0]
				samples[i][1] += scratch[i][1]
			}
		}
	}
	return len(samples), true
}

func (g *Graph) Err() error {
	return nil
}
