// Package app composes the mixer, presets, breathing exercises and
// affirmations into one session driven by Commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agusx1211/find-the-calm/internal/affirmation"
	"github.com/agusx1211/find-the-calm/internal/breathing"
	"github.com/agusx1211/find-the-calm/internal/haptics"
	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/agusx1211/find-the-calm/internal/preset"
	"github.com/agusx1211/find-the-calm/internal/speech"
	"github.com/sirupsen/logrus"
)

const (
	StatusNotStarted  = "Audio is not started."
	StatusActive      = "Audio active - use controls to adjust layers."
	StatusUnavailable = "Audio output is not available on this device."
)

var ErrUnknownAction = errors.New("unknown action")

type Options struct {
	Layers        []mixer.LayerSpec
	DefaultVolume float64
	Graph         *mixer.Graph
	Store         *preset.Store
	Breathing     *breathing.Coordinator
	Affirmations  *affirmation.Cycler
	Haptics       *haptics.Feedback
	Speaker       speech.Speaker
}

// Session serialises commands. The UI renders Snapshot and never holds
// state of its own.
type Session struct {
	mu sync.Mutex

	layers        []mixer.LayerSpec
	defaultVolume float64
	graph         *mixer.Graph
	store         *preset.Store
	breathing     *breathing.Coordinator
	affirmations  *affirmation.Cycler
	haptics       *haptics.Feedback
	speaker       speech.Speaker

	// statusMu guards status and unavailable so Snapshot never waits on a
	// command that is opening the audio device.
	statusMu    sync.Mutex
	status      string
	unavailable bool

	log *logrus.Entry
}

func New(opts Options) *Session {
	s := &Session{
		layers:        opts.Layers,
		defaultVolume: opts.DefaultVolume,
		graph:         opts.Graph,
		store:         opts.Store,
		breathing:     opts.Breathing,
		affirmations:  opts.Affirmations,
		haptics:       opts.Haptics,
		speaker:       opts.Speaker,
		status:        StatusNotStarted,
		log:           logrus.WithField("component", "session"),
	}
	if s.haptics == nil {
		s.haptics = haptics.New(nil, false)
	}
	if s.speaker == nil {
		s.speaker = speech.Nop{}
	}
	if s.affirmations == nil {
		s.affirmations = affirmation.New(nil, s.speaker)
	}
	if s.breathing == nil {
		s.breathing = breathing.New(nil, breathing.Options{Speaker: s.speaker})
	}
	return s
}

func (s *Session) Handle(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"action": cmd.Action,
		"layer":  cmd.Layer,
	}).Debug("Handling command")

	switch cmd.Action {
	case ActionStartAudio:
		return s.startAudio(ctx)
	case ActionStopAudio:
		if err := s.graph.Teardown(); err != nil {
			s.log.WithField("error", err.Error()).Warn("Closing audio output failed")
		}
		s.statusMu.Lock()
		if !s.unavailable {
			s.status = StatusNotStarted
		}
		s.statusMu.Unlock()
	case ActionSetMasterVolume:
		s.graph.SetMasterVolume(cmd.Value)
	case ActionSetLayerVolume:
		if s.requireAudio(cmd) {
			s.graph.SetLayerVolume(cmd.Layer, cmd.Value)
			s.haptics.Short()
		}
	case ActionSetLayerMuted:
		if s.requireAudio(cmd) {
			s.graph.SetLayerMuted(cmd.Layer, cmd.Flag)
			s.haptics.Short()
		}
	case ActionToggleSolo:
		if s.requireAudio(cmd) {
			s.graph.ToggleSolo(cmd.Layer)
			if cmd.Hold {
				s.haptics.Long()
			} else {
				s.haptics.Short()
			}
		}
	case ActionSavePreset:
		if err := s.store.Save(s.graph.State()); err != nil {
			s.log.WithField("error", err.Error()).Error("Failed to save preset")
			return err
		}
		s.haptics.Short()
	case ActionLoadPreset:
		state, ok := s.store.Load()
		if !ok {
			s.log.Info("No saved preset")
			return nil
		}
		s.graph.Apply(state)
		s.haptics.Short()
	case ActionStartBreathing:
		started, err := s.breathing.Start(cmd.Exercise)
		if err != nil {
			s.log.WithField("exercise", cmd.Exercise).Error("Unknown breathing exercise")
			return err
		}
		if started && s.breathing.AutoSpeak() {
			s.affirmations.SpeakCurrent()
		}
	case ActionStopBreathing:
		if cmd.Exercise == "" {
			s.breathing.StopAll()
		} else {
			s.breathing.Stop(cmd.Exercise)
		}
	case ActionNextAffirmation:
		s.affirmations.Next()
	case ActionShowAffirmation:
		s.affirmations.Show(cmd.Index)
	case ActionSpeakAffirmation:
		s.affirmations.SpeakCurrent()
	case ActionSetAutoSpeak:
		s.breathing.SetAutoSpeak(cmd.Flag)
		if !cmd.Flag {
			s.speaker.Cancel()
		}
	case ActionSetHaptics:
		s.haptics.SetEnabled(cmd.Flag)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}

func (s *Session) startAudio(ctx context.Context) error {
	if s.graph.Initialized() {
		return nil
	}
	err := s.graph.Initialize(ctx, s.layers)

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if err != nil {
		s.status = StatusUnavailable
		s.unavailable = true
		return err
	}
	s.status = StatusActive
	s.unavailable = false
	return nil
}

// requireAudio drops layer controls until the graph exists.
func (s *Session) requireAudio(cmd Command) bool {
	if s.graph.Initialized() {
		return true
	}
	s.log.WithFields(logrus.Fields{
		"action": cmd.Action,
		"layer":  cmd.Layer,
	}).Debug("Ignoring layer control before audio start")
	return false
}

// Close stops breathing, speech and audio.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breathing.StopAll()
	s.speaker.Cancel()
	return s.graph.Teardown()
}

func (s *Session) Layers() []mixer.LayerSpec {
	return append([]mixer.LayerSpec(nil), s.layers...)
}

func (s *Session) Exercises() []string {
	return s.breathing.Keys()
}
