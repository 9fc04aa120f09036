package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Audio   AudioConfig   `mapstructure:"audio"`
	Layers  []LayerConfig `mapstructure:"layers"`
	Preset  PresetConfig  `mapstructure:"preset"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Haptics HapticsConfig `mapstructure:"haptics"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	// Catalog optionally replaces the built-in exercises and affirmations.
	Catalog string        `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type AudioConfig struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	BufferSize    int           `mapstructure:"buffer_size"`
	RampTime      time.Duration `mapstructure:"ramp_time"`
	DuckedLevel   float64       `mapstructure:"ducked_level"`
	SoloLevel     float64       `mapstructure:"solo_level"`
	DefaultVolume float64       `mapstructure:"default_volume"`
	MasterVolume  float64       `mapstructure:"master_volume"`
	AssetTimeout  time.Duration `mapstructure:"asset_timeout"`
	Autostart     bool          `mapstructure:"autostart"`
}

type LayerConfig struct {
	Name  string `mapstructure:"name"`
	Label string `mapstructure:"label"`
	Asset string `mapstructure:"asset"`
}

type PresetConfig struct {
	Dir string `mapstructure:"dir"`
	Key string `mapstructure:"key"`
}

type SpeechConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Language  string `mapstructure:"language"`
	CacheDir  string `mapstructure:"cache_dir"`
	AutoSpeak bool   `mapstructure:"auto_speak"`
}

type HapticsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.buffer_size", 2048)
	v.SetDefault("audio.ramp_time", "150ms")
	v.SetDefault("audio.ducked_level", 0.12)
	v.SetDefault("audio.solo_level", 1.0)
	v.SetDefault("audio.default_volume", 0.7)
	v.SetDefault("audio.master_volume", 1.0)
	v.SetDefault("audio.asset_timeout", "3s")
	v.SetDefault("audio.autostart", false)
	v.SetDefault("layers", []map[string]any{
		{"name": "rain", "label": "Rain", "asset": "assets/audio/rain.mp3"},
		{"name": "wind", "label": "Wind", "asset": "assets/audio/wind.mp3"},
		{"name": "piano", "label": "Piano", "asset": "assets/audio/piano.mp3"},
	})
	v.SetDefault("preset.dir", "/var/lib/find-the-calm")
	v.SetDefault("preset.key", "ftc_preset")
	v.SetDefault("speech.enabled", true)
	v.SetDefault("speech.language", "en")
	v.SetDefault("speech.cache_dir", "/var/lib/find-the-calm/speech")
	v.SetDefault("speech.auto_speak", false)
	v.SetDefault("haptics.enabled", true)
	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.user", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "homeassistant/calm")
	v.SetDefault("catalog", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads defaults, an optional config.yaml and CALM_* environment
// variables into a Config. A file already set with SetConfigFile is read
// instead of searching the default locations, and must exist.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// SetConfigName clears an explicit config file, so only search when none
	// was given.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.find-the-calm")
		v.AddConfigPath("/etc/find-the-calm")
	}

	v.SetEnvPrefix("CALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logrus.Debug("No config file found, using defaults and environment variables")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Info("Using config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	broker := cfg.MQTT.Broker
	if !strings.HasPrefix(broker, "tcp://") && !strings.HasPrefix(broker, "ssl://") {
		cfg.MQTT.Broker = "tcp://" + broker
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return &ConfigError{Field: "audio.sample_rate", Message: "must be positive"}
	}
	if c.Audio.BufferSize <= 0 {
		return &ConfigError{Field: "audio.buffer_size", Message: "must be positive"}
	}
	if c.Audio.RampTime < 0 {
		return &ConfigError{Field: "audio.ramp_time", Message: "must not be negative"}
	}
	levels := []struct {
		field string
		value float64
	}{
		{"audio.ducked_level", c.Audio.DuckedLevel},
		{"audio.solo_level", c.Audio.SoloLevel},
		{"audio.default_volume", c.Audio.DefaultVolume},
		{"audio.master_volume", c.Audio.MasterVolume},
	}
	for _, l := range levels {
		if l.value < 0 || l.value > 1 {
			return &ConfigError{Field: l.field, Message: "must be between 0 and 1"}
		}
	}

	if len(c.Layers) == 0 {
		return &ConfigError{Field: "layers", Message: "at least one layer is required"}
	}
	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		field := fmt.Sprintf("layers[%d].name", i)
		if l.Name == "" {
			return &ConfigError{Field: field, Message: "layer name is required"}
		}
		if seen[l.Name] {
			return &ConfigError{Field: field, Message: fmt.Sprintf("duplicate layer %q", l.Name)}
		}
		seen[l.Name] = true
	}

	if c.Preset.Key == "" {
		return &ConfigError{Field: "preset.key", Message: "preset key is required"}
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		return &ConfigError{Field: "mqtt.topic", Message: "base topic is required"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	return nil
}

// MixerOptions maps the audio section onto graph options.
func (c *Config) MixerOptions() mixer.Options {
	opts := mixer.DefaultOptions()
	opts.SampleRate = beep.SampleRate(c.Audio.SampleRate)
	opts.RampTime = c.Audio.RampTime
	opts.SoloLevel = c.Audio.SoloLevel
	opts.DuckedLevel = c.Audio.DuckedLevel
	opts.DefaultVolume = c.Audio.DefaultVolume
	opts.MasterVolume = c.Audio.MasterVolume
	opts.AssetTimeout = c.Audio.AssetTimeout
	return opts
}

func (c *Config) LayerSpecs() []mixer.LayerSpec {
	specs := make([]mixer.LayerSpec, 0, len(c.Layers))
	for _, l := range c.Layers {
		label := l.Label
		if label == "" {
			label = l.Name
		}
		specs = append(specs, mixer.LayerSpec{Name: l.Name, Label: label, Asset: l.Asset})
	}
	return specs
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
