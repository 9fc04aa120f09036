package mqtt

import (
	"strconv"
	"strings"

	"github.com/agusx1211/find-the-calm/internal/app"
)

// ParseCommand maps a message on a <base>/.../set topic to a session command.
func ParseCommand(base, topic string, payload []byte) (app.Command, bool) {
	rest, ok := strings.CutPrefix(topic, base+"/")
	if !ok {
		return app.Command{}, false
	}
	rest, ok = strings.CutSuffix(rest, "/set")
	if !ok {
		return app.Command{}, false
	}
	value := strings.TrimSpace(string(payload))
	upper := strings.ToUpper(value)

	switch rest {
	case "audio":
		return onOff(upper, app.ActionStartAudio, app.ActionStopAudio)
	case "master":
		v, ok := percent(value)
		return app.Command{Action: app.ActionSetMasterVolume, Value: v}, ok
	case "preset":
		switch upper {
		case "SAVE":
			return app.Command{Action: app.ActionSavePreset}, true
		case "LOAD":
			return app.Command{Action: app.ActionLoadPreset}, true
		}
		return app.Command{}, false
	case "breathing":
		switch {
		case value == "":
			return app.Command{}, false
		case upper == "STOP":
			return app.Command{Action: app.ActionStopBreathing}, true
		}
		return app.Command{Action: app.ActionStartBreathing, Exercise: value}, true
	case "affirmation":
		switch upper {
		case "NEXT":
			return app.Command{Action: app.ActionNextAffirmation}, true
		case "SPEAK":
			return app.Command{Action: app.ActionSpeakAffirmation}, true
		}
		i, err := strconv.Atoi(value)
		if err != nil {
			return app.Command{}, false
		}
		return app.Command{Action: app.ActionShowAffirmation, Index: i}, true
	case "auto_speak":
		return flag(upper, app.ActionSetAutoSpeak)
	case "haptics":
		return flag(upper, app.ActionSetHaptics)
	}

	layer, control, ok := strings.Cut(strings.TrimPrefix(rest, "layer/"), "/")
	if !strings.HasPrefix(rest, "layer/") || !ok || layer == "" {
		return app.Command{}, false
	}
	switch control {
	case "volume":
		v, ok := percent(value)
		return app.Command{Action: app.ActionSetLayerVolume, Layer: layer, Value: v}, ok
	case "mute":
		cmd, ok := flag(upper, app.ActionSetLayerMuted)
		cmd.Layer = layer
		return cmd, ok
	case "solo":
		switch upper {
		case "", "PRESS":
			return app.Command{Action: app.ActionToggleSolo, Layer: layer}, true
		case "HOLD":
			return app.Command{Action: app.ActionToggleSolo, Layer: layer, Hold: true}, true
		}
	}
	return app.Command{}, false
}

func onOff(payload string, on, off app.Action) (app.Command, bool) {
	switch payload {
	case "ON":
		return app.Command{Action: on}, true
	case "OFF":
		return app.Command{Action: off}, true
	}
	return app.Command{}, false
}

func flag(payload string, action app.Action) (app.Command, bool) {
	switch payload {
	case "ON":
		return app.Command{Action: action, Flag: true}, true
	case "OFF":
		return app.Command{Action: action, Flag: false}, true
	}
	return app.Command{}, false
}

func percent(payload string) (float64, bool) {
	v, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return 0, false
	}
	return v / 100.0, true
}
