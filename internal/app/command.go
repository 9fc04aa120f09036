package app

type Action string

const (
	ActionStartAudio       Action = "start_audio"
	ActionStopAudio        Action = "stop_audio"
	ActionSetMasterVolume  Action = "set_master_volume"
	ActionSetLayerVolume   Action = "set_layer_volume"
	ActionSetLayerMuted    Action = "set_layer_muted"
	ActionToggleSolo       Action = "toggle_solo"
	ActionSavePreset       Action = "save_preset"
	ActionLoadPreset       Action = "load_preset"
	ActionStartBreathing   Action = "start_breathing"
	ActionStopBreathing    Action = "stop_breathing"
	ActionNextAffirmation  Action = "next_affirmation"
	ActionShowAffirmation  Action = "show_affirmation"
	ActionSpeakAffirmation Action = "speak_affirmation"
	ActionSetAutoSpeak     Action = "set_auto_speak"
	ActionSetHaptics       Action = "set_haptics"
)

// Command is one user intent. Only the fields relevant to Action are read.
type Command struct {
	Action Action
	Layer  string
	Value  float64
	Flag   bool
	// Hold marks a long press, answered with a long pulse.
	Hold     bool
	Exercise string
	Index    int
}
