// Package breathing drives timed breathing exercises through their phases.
package breathing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agusx1211/find-the-calm/internal/catalog"
	"github.com/agusx1211/find-the-calm/internal/speech"
	"github.com/sirupsen/logrus"
)

var ErrUnknownExercise = errors.New("unknown breathing exercise")

// ChangeFunc observes label changes. It is called without internal locks held.
type ChangeFunc func(key, label string)

type Options struct {
	Scheduler Scheduler
	Speaker   speech.Speaker
	AutoSpeak bool
	OnChange  ChangeFunc
}

// Coordinator runs at most one exercise at a time. Every start and stop bumps
// a generation counter, so a timer that fires after being superseded does
// nothing, and a phase it already announced is dropped if a stop got in first.
type Coordinator struct {
	mu sync.Mutex
	// emitMu orders notices against speaker cancellation.
	emitMu sync.Mutex

	exercises map[string]catalog.Exercise
	order     []string
	labels    map[string]string

	active string
	index  int
	timer  Timer
	gen    uint64

	autoSpeak bool
	sched     Scheduler
	speaker   speech.Speaker
	onChange  ChangeFunc

	log *logrus.Entry
}

func New(exercises []catalog.Exercise, opts Options) *Coordinator {
	c := &Coordinator{
		exercises: make(map[string]catalog.Exercise, len(exercises)),
		labels:    make(map[string]string, len(exercises)),
		autoSpeak: opts.AutoSpeak,
		sched:     opts.Scheduler,
		speaker:   opts.Speaker,
		onChange:  opts.OnChange,
		log:       logrus.WithField("component", "breathing"),
	}
	if c.sched == nil {
		c.sched = SystemScheduler()
	}
	if c.speaker == nil {
		c.speaker = speech.Nop{}
	}
	for _, e := range exercises {
		if _, dup := c.exercises[e.Key]; dup || len(e.Phases) == 0 {
			continue
		}
		c.exercises[e.Key] = e
		c.order = append(c.order, e.Key)
		c.labels[e.Key] = e.RestLabel
	}
	return c
}

type notice struct {
	key, label string
	speak      bool
	// gen is set for phase notices, which go stale once gen moves on
	gen uint64
}

// Start begins the exercise, stopping any other one first. Starting the
// exercise that is already running stops it instead; started reports which
// happened.
func (c *Coordinator) Start(key string) (started bool, err error) {
	c.mu.Lock()
	ex, ok := c.exercises[key]
	if !ok {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrUnknownExercise, key)
	}

	var notices []notice
	if c.active == key {
		notices = append(notices, c.stopLocked(key))
		c.mu.Unlock()
		c.cancelAndEmit(notices)
		return false, nil
	}
	if c.active != "" {
		notices = append(notices, c.stopLocked(c.active))
	}

	c.active = key
	c.index = 0
	notices = append(notices, c.enterPhaseLocked(ex))
	c.mu.Unlock()

	c.log.WithField("exercise", key).Info("Breathing exercise started")
	c.emit(notices)
	return true, nil
}

// Stop ends the exercise if it is running and always resets its label.
func (c *Coordinator) Stop(key string) {
	c.mu.Lock()
	if _, ok := c.exercises[key]; !ok {
		c.mu.Unlock()
		return
	}
	n := c.stopLocked(key)
	c.mu.Unlock()

	c.cancelAndEmit([]notice{n})
}

// StopAll stops whatever is running.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active != "" {
		c.Stop(active)
	}
}

func (c *Coordinator) stopLocked(key string) notice {
	ex := c.exercises[key]
	if c.active == key {
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.gen++
		c.active = ""
		c.index = 0
		c.log.WithField("exercise", key).Info("Breathing exercise stopped")
	}
	c.labels[key] = ex.RestLabel
	return notice{key: key, label: ex.RestLabel}
}

// enterPhaseLocked shows the current phase and schedules the next one.
func (c *Coordinator) enterPhaseLocked(ex catalog.Exercise) notice {
	phase := ex.Phases[c.index]
	c.labels[ex.Key] = phase.Label

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.sched.AfterFunc(time.Duration(phase.Seconds)*time.Second, func() {
		c.advance(gen)
	})
	return notice{key: ex.Key, label: phase.Label, speak: c.autoSpeak, gen: gen}
}

func (c *Coordinator) advance(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.active == "" {
		c.mu.Unlock()
		return
	}
	ex := c.exercises[c.active]
	c.index = (c.index + 1) % len(ex.Phases)
	n := c.enterPhaseLocked(ex)
	c.mu.Unlock()

	c.emit([]notice{n})
}

func (c *Coordinator) cancelAndEmit(notices []notice) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.speaker.Cancel()
	c.emitLocked(notices)
}

func (c *Coordinator) emit(notices []notice) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.emitLocked(notices)
}

func (c *Coordinator) emitLocked(notices []notice) {
	for _, n := range notices {
		if n.gen != 0 && n.gen != c.generation() {
			continue
		}
		if n.speak {
			c.speaker.Speak(n.label, speech.PhaseVoice)
		}
		if c.onChange != nil {
			c.onChange(n.key, n.label)
		}
	}
}

func (c *Coordinator) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Label is the text currently shown for the exercise.
func (c *Coordinator) Label(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.labels[key]
	return l, ok
}

func (c *Coordinator) Labels() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.labels))
	for k, v := range c.labels {
		out[k] = v
	}
	return out
}

// Active returns the running exercise key, or "" when idle.
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) Phase() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Coordinator) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *Coordinator) SetAutoSpeak(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSpeak = on
}

func (c *Coordinator) AutoSpeak() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSpeak
}
