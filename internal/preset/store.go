// Package preset persists a single mixer snapshot in a key-value slot.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/sirupsen/logrus"
)

const (
	DefaultKey = "ftc_preset"
	// DefaultTrackVolume is used for stored tracks that carry no volume.
	DefaultTrackVolume = 0.7
)

type blob struct {
	Master *float64         `json:"master"`
	Solo   *string          `json:"solo"`
	Tracks map[string]track `json:"tracks"`
}

type track struct {
	Volume *float64 `json:"volume"`
	Muted  bool     `json:"muted"`
}

// Store reads and writes the one preset slot. Each Save overwrites it.
type Store struct {
	kv  KV
	key string
	log *logrus.Entry
}

func NewStore(kv KV, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:  kv,
		key: key,
		log: logrus.WithFields(logrus.Fields{
			"component": "preset",
			"key":       key,
		}),
	}
}

func (s *Store) Key() string { return s.key }

func (s *Store) Save(state mixer.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	s.log.WithField("layers", len(state.Layers)).Info("Preset saved")
	return nil
}

// Load returns the saved state, or false when nothing usable is stored.
// Corrupt data is reported as absent, never as an error.
func (s *Store) Load() (mixer.State, bool) {
	data, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithField("error", err.Error()).Warn("Failed to read preset")
		}
		return mixer.State{}, false
	}
	state, err := Decode(data)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("Ignoring malformed preset")
		return mixer.State{}, false
	}
	return state, true
}

func (s *Store) Clear() error {
	return s.kv.Delete(s.key)
}

func Encode(state mixer.State) ([]byte, error) {
	master := state.MasterVolume
	b := blob{
		Master: &master,
		Tracks: make(map[string]track, len(state.Layers)),
	}
	if state.Solo != "" {
		solo := state.Solo
		b.Solo = &solo
	}
	for name, l := range state.Layers {
		v := l.Volume
		b.Tracks[name] = track{Volume: &v, Muted: l.Muted}
	}
	return json.Marshal(b)
}

func Decode(data []byte) (mixer.State, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return mixer.State{}, err
	}
	if b.Master == nil {
		return mixer.State{}, errors.New("missing master volume")
	}
	if !inRange(*b.Master) {
		return mixer.State{}, fmt.Errorf("master volume %v out of range", *b.Master)
	}

	state := mixer.State{
		MasterVolume: *b.Master,
		Layers:       make(map[string]mixer.LayerState, len(b.Tracks)),
	}
	if b.Solo != nil {
		state.Solo = *b.Solo
	}
	for name, t := range b.Tracks {
		v := DefaultTrackVolume
		if t.Volume != nil {
			v = *t.Volume
		}
		if !inRange(v) {
			return mixer.State{}, fmt.Errorf("track %q volume %v out of range", name, v)
		}
		state.Layers[name] = mixer.LayerState{Volume: v, Muted: t.Muted}
	}
	return state, nil
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
