package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 150*time.Millisecond, cfg.Audio.RampTime)
	assert.Equal(t, 0.12, cfg.Audio.DuckedLevel)
	assert.Equal(t, 0.7, cfg.Audio.DefaultVolume)
	assert.Equal(t, "ftc_preset", cfg.Preset.Key)
	assert.Equal(t, "tcp://localhost", cfg.MQTT.Broker)

	require.Len(t, cfg.Layers, 3)
	assert.Equal(t, "rain", cfg.Layers[0].Name)
	assert.Equal(t, "Piano", cfg.Layers[2].Label)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("CALM_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("CALM_AUDIO_DUCKED_LEVEL", "0.2")
	t.Setenv("CALM_MQTT_BROKER", "ssl://broker.local")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 0.2, cfg.Audio.DuckedLevel)
	assert.Equal(t, "ssl://broker.local", cfg.MQTT.Broker)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  ramp_time: 300ms
layers:
  - name: ocean
    asset: https://example.com/ocean.mp3
preset:
  key: bedroom
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 300*time.Millisecond, cfg.Audio.RampTime)
	assert.Equal(t, "bedroom", cfg.Preset.Key)

	specs := cfg.LayerSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "ocean", specs[0].Name)
	assert.Equal(t, "ocean", specs[0].Label)
}

func TestLoadExplicitFileWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  sample_rate: 22050\n"), 0o644))
	// a config.yaml in the working directory must not shadow the explicit file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("audio:\n  sample_rate: 11025\n"), 0o644))
	t.Chdir(dir)

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, path, v.ConfigFileUsed())
}

func TestLoadExplicitFileMissing(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "audio.sample_rate"},
		{"ducked level", func(c *Config) { c.Audio.DuckedLevel = 1.5 }, "audio.ducked_level"},
		{"no layers", func(c *Config) { c.Layers = nil }, "layers"},
		{"duplicate layer", func(c *Config) { c.Layers = append(c.Layers, c.Layers[0]) }, "layers[3].name"},
		{"empty preset key", func(c *Config) { c.Preset.Key = "" }, "preset.key"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(viper.New())
			require.NoError(t, err)
			tt.edit(cfg)

			err = cfg.Validate()
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestMixerOptions(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	cfg.Audio.DuckedLevel = 0.3

	opts := cfg.MixerOptions()
	assert.Equal(t, beep.SampleRate(44100), opts.SampleRate)
	assert.Equal(t, 0.3, opts.DuckedLevel)
	assert.Equal(t, 3*time.Second, opts.AssetTimeout)
}
