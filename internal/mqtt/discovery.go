package mqtt

import (
	"fmt"

	"github.com/agusx1211/find-the-calm/internal/mixer"
)

type entity struct {
	Domain string
	ID     string
	Config map[string]interface{}
}

const stopOption = "STOP"

// entities describes the Home Assistant device: global controls plus one
// volume, mute and solo control per layer.
func entities(base string, layers []mixer.LayerSpec, exercises []string) []entity {
	device := map[string]interface{}{
		"identifiers":  []string{"find_the_calm"},
		"name":         "Find the Calm",
		"manufacturer": "Find the Calm",
		"model":        "Ambient Mixer",
	}
	availability := map[string]interface{}{
		"topic": base + "/availability",
	}
	state := base + "/state"

	common := func(name, id string, cfg map[string]interface{}) entity {
		cfg["name"] = name
		cfg["unique_id"] = id
		cfg["device"] = device
		cfg["availability"] = availability
		return entity{ID: id, Config: cfg}
	}

	var out []entity
	add := func(domain string, e entity) {
		e.Domain = domain
		out = append(out, e)
	}

	add("switch", common("Audio", "calm_audio", map[string]interface{}{
		"command_topic":  base + "/audio/set",
		"state_topic":    state,
		"value_template": "{% if value_json.audio %}ON{% else %}OFF{% endif %}",
		"payload_on":     "ON",
		"payload_off":    "OFF",
		"icon":           "mdi:power",
	}))

	add("number", common("Master Volume", "calm_master", map[string]interface{}{
		"command_topic":       base + "/master/set",
		"state_topic":         state,
		"value_template":      "{{ (value_json.master * 100) | round(0) }}",
		"min":                 0,
		"max":                 100,
		"step":                1,
		"unit_of_measurement": "%",
		"icon":                "mdi:volume-high",
	}))

	add("sensor", common("Status", "calm_status", map[string]interface{}{
		"state_topic":    state,
		"value_template": "{{ value_json.status }}",
		"icon":           "mdi:information-outline",
	}))

	for i, l := range layers {
		prefix := fmt.Sprintf("%s/layer/%s", base, l.Name)
		id := "calm_layer_" + l.Name
		add("number", common(l.Label+" Volume", id+"_volume", map[string]interface{}{
			"command_topic":       prefix + "/volume/set",
			"state_topic":         state,
			"value_template":      fmt.Sprintf("{{ (value_json.layers[%d].volume * 100) | round(0) }}", i),
			"min":                 0,
			"max":                 100,
			"step":                1,
			"unit_of_measurement": "%",
			"icon":                "mdi:tune-vertical",
		}))
		add("switch", common(l.Label+" Mute", id+"_mute", map[string]interface{}{
			"command_topic":  prefix + "/mute/set",
			"state_topic":    state,
			"value_template": fmt.Sprintf("{%% if value_json.layers[%d].muted %%}ON{%% else %%}OFF{%% endif %%}", i),
			"payload_on":     "ON",
			"payload_off":    "OFF",
			"icon":           "mdi:volume-off",
		}))
		add("button", common(l.Label+" Solo", id+"_solo", map[string]interface{}{
			"command_topic": prefix + "/solo/set",
			"payload_press": "PRESS",
			"icon":          "mdi:headphones",
		}))
	}

	add("button", common("Save Preset", "calm_preset_save", map[string]interface{}{
		"command_topic": base + "/preset/set",
		"payload_press": "SAVE",
		"icon":          "mdi:content-save",
	}))
	add("button", common("Load Preset", "calm_preset_load", map[string]interface{}{
		"command_topic": base + "/preset/set",
		"payload_press": "LOAD",
		"icon":          "mdi:folder-open",
	}))

	options := append(append([]string(nil), exercises...), stopOption)
	add("select", common("Breathing Exercise", "calm_breathing", map[string]interface{}{
		"command_topic":  base + "/breathing/set",
		"state_topic":    state,
		"value_template": "{{ value_json.exercise | default('" + stopOption + "', true) }}",
		"options":        options,
		"icon":           "mdi:weather-windy",
	}))
	add("sensor", common("Breathing Phase", "calm_breathing_phase", map[string]interface{}{
		"state_topic":    state,
		"value_template": "{{ value_json.breathing[value_json.exercise] if value_json.exercise else '' }}",
		"icon":           "mdi:lungs",
	}))

	add("sensor", common("Affirmation", "calm_affirmation", map[string]interface{}{
		"state_topic":    state,
		"value_template": "{{ value_json.affirmation }}",
		"icon":           "mdi:format-quote-open",
	}))
	add("button", common("Next Affirmation", "calm_affirmation_next", map[string]interface{}{
		"command_topic": base + "/affirmation/set",
		"payload_press": "NEXT",
		"icon":          "mdi:skip-next",
	}))
	add("button", common("Speak Affirmation", "calm_affirmation_speak", map[string]interface{}{
		"command_topic": base + "/affirmation/set",
		"payload_press": "SPEAK",
		"icon":          "mdi:account-voice",
	}))

	add("switch", common("Auto Speak", "calm_auto_speak", map[string]interface{}{
		"command_topic":  base + "/auto_speak/set",
		"state_topic":    state,
		"value_template": "{% if value_json.auto_speak %}ON{% else %}OFF{% endif %}",
		"payload_on":     "ON",
		"payload_off":    "OFF",
		"icon":           "mdi:text-to-speech",
	}))
	add("switch", common("Haptics", "calm_haptics", map[string]interface{}{
		"command_topic":  base + "/haptics/set",
		"state_topic":    state,
		"value_template": "{% if value_json.haptics %}ON{% else %}OFF{% endif %}",
		"payload_on":     "ON",
		"payload_off":    "OFF",
		"icon":           "mdi:vibrate",
	}))

	return out
}
