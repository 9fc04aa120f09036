package app

type LayerView struct {
	Name          string  `json:"name"`
	Label         string  `json:"label"`
	Volume        float64 `json:"volume"`
	Muted         bool    `json:"muted"`
	Soloed        bool    `json:"soloed"`
	UsingFallback bool    `json:"using_fallback"`
	Target        float64 `json:"target"`
}

// Snapshot is everything a view needs to render the page.
type Snapshot struct {
	Status           string            `json:"status"`
	Audio            bool              `json:"audio"`
	AudioAvailable   bool              `json:"audio_available"`
	MasterVolume     float64           `json:"master"`
	Solo             string            `json:"solo,omitempty"`
	Layers           []LayerView       `json:"layers"`
	Exercise         string            `json:"exercise,omitempty"`
	Breathing        map[string]string `json:"breathing"`
	AffirmationIndex int               `json:"affirmation_index"`
	Affirmation      string            `json:"affirmation"`
	AutoSpeak        bool              `json:"auto_speak"`
	Haptics          bool              `json:"haptics"`
}

// Snapshot reads each component under its own lock and does not wait for an
// in-flight command.
func (s *Session) Snapshot() Snapshot {
	s.statusMu.Lock()
	status, unavailable := s.status, s.unavailable
	s.statusMu.Unlock()

	state := s.graph.State()
	snap := Snapshot{
		Status:           status,
		Audio:            s.graph.Initialized(),
		AudioAvailable:   !unavailable,
		MasterVolume:     state.MasterVolume,
		Solo:             state.Solo,
		Exercise:         s.breathing.Active(),
		Breathing:        s.breathing.Labels(),
		AffirmationIndex: s.affirmations.Index(),
		Affirmation:      s.affirmations.Current(),
		AutoSpeak:        s.breathing.AutoSpeak(),
		Haptics:          s.haptics.Enabled(),
	}

	if snap.Audio {
		for _, l := range s.graph.Layers() {
			snap.Layers = append(snap.Layers, LayerView{
				Name:          l.Name,
				Label:         l.Label,
				Volume:        l.Volume,
				Muted:         l.Muted,
				Soloed:        l.Name == state.Solo,
				UsingFallback: l.UsingFallback,
				Target:        l.Target,
			})
		}
		return snap
	}

	for _, spec := range s.layers {
		ls, ok := state.Layers[spec.Name]
		if !ok {
			ls.Volume = s.defaultVolume
		}
		snap.Layers = append(snap.Layers, LayerView{
			Name:   spec.Name,
			Label:  spec.Label,
			Volume: ls.Volume,
			Muted:  ls.Muted,
			Soloed: spec.Name == state.Solo,
		})
	}
	return snap
}
