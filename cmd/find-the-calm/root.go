package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agusx1211/find-the-calm/internal/affirmation"
	"github.com/agusx1211/find-the-calm/internal/app"
	"github.com/agusx1211/find-the-calm/internal/audio"
	"github.com/agusx1211/find-the-calm/internal/breathing"
	"github.com/agusx1211/find-the-calm/internal/catalog"
	"github.com/agusx1211/find-the-calm/internal/config"
	"github.com/agusx1211/find-the-calm/internal/haptics"
	"github.com/agusx1211/find-the-calm/internal/logger"
	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/agusx1211/find-the-calm/internal/mqtt"
	"github.com/agusx1211/find-the-calm/internal/preset"
	"github.com/agusx1211/find-the-calm/internal/speech"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "find-the-calm",
	Short: "Ambient sound mixer with guided breathing",
	Long: `find-the-calm plays layered ambient sounds (rain, wind, piano, ...) with
per-layer volume, mute and solo, guided breathing exercises and spoken
affirmations. It is controlled over MQTT and shows up in Home Assistant.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().Bool("start", false, "start audio immediately")
	rootCmd.Flags().Int("sample-rate", 44100, "output sample rate")
	rootCmd.Flags().String("preset-dir", "/var/lib/find-the-calm", "directory holding the saved preset")
	rootCmd.Flags().String("mqtt-broker", "localhost", "MQTT broker host")
	rootCmd.Flags().Bool("no-mqtt", false, "run without the MQTT control surface")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "text", "log format (text, json)")

	viper.BindPFlag("audio.autostart", rootCmd.Flags().Lookup("start"))
	viper.BindPFlag("audio.sample_rate", rootCmd.Flags().Lookup("sample-rate"))
	viper.BindPFlag("preset.dir", rootCmd.Flags().Lookup("preset-dir"))
	viper.BindPFlag("mqtt.broker", rootCmd.Flags().Lookup("mqtt-broker"))
	viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.Flags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		viper.Set("logging.level", "debug")
	}
	if noMQTT, _ := rootCmd.Flags().GetBool("no-mqtt"); noMQTT {
		viper.Set("mqtt.enabled", false)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// statePublisher receives the session snapshot after every change.
type statePublisher interface {
	PublishState()
}

type logPublisher struct {
	session *app.Session
}

func (p logPublisher) PublishState() {
	snap := p.session.Snapshot()
	logrus.WithFields(logrus.Fields{
		"status":   snap.Status,
		"master":   snap.MasterVolume,
		"solo":     snap.Solo,
		"exercise": snap.Exercise,
	}).Debug("State")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return err
	}

	graphOpts := cfg.MixerOptions()
	var speaker speech.Speaker = speech.Nop{}
	if cfg.Speech.Enabled {
		bus := speech.NewBus()
		graphOpts.Sends = []beep.Streamer{bus}
		speaker = speech.NewSynth(speech.Config{
			Language:   cfg.Speech.Language,
			CacheDir:   cfg.Speech.CacheDir,
			SampleRate: graphOpts.SampleRate,
		}, bus)
	}

	changed := make(chan struct{}, 1)
	coordinator := breathing.New(cat.Exercises, breathing.Options{
		Speaker:   speaker,
		AutoSpeak: cfg.Speech.AutoSpeak,
		OnChange: func(string, string) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	})

	feedback := haptics.New(nil, cfg.Haptics.Enabled)
	session := app.New(app.Options{
		Layers:        cfg.LayerSpecs(),
		DefaultVolume: cfg.Audio.DefaultVolume,
		Graph:         mixer.NewGraph(graphOpts, audio.Factory(cfg.Audio.BufferSize)),
		Store:         preset.NewStore(preset.NewFileKV(cfg.Preset.Dir), cfg.Preset.Key),
		Breathing:     coordinator,
		Affirmations:  affirmation.New(cat.Affirmations, speaker),
		Haptics:       feedback,
		Speaker:       speaker,
	})
	defer func() {
		if err := session.Close(); err != nil {
			logrus.WithField("error", err.Error()).Warn("Failed to close audio output")
		}
	}()

	commandChan := make(chan app.Command, 100)

	var publisher statePublisher = logPublisher{session: session}
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(cfg.MQTT, session, commandChan)
		if err != nil {
			return fmt.Errorf("failed to create MQTT client: %w", err)
		}
		defer mqttClient.Close()
		feedback.SetBackend(mqttClient)
		publisher = mqttClient
	}

	// The saved preset is held by the mixer until audio starts.
	commandChan <- app.Command{Action: app.ActionLoadPreset}
	if cfg.Audio.Autostart {
		commandChan <- app.Command{Action: app.ActionStartAudio}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		processCommands(ctx, session, commandChan, changed, publisher)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logrus.WithField("signal", sig.String()).Info("Shutting down")
	cancel()
	<-done
	return nil
}

func processCommands(ctx context.Context, session *app.Session, cmdChan <-chan app.Command, changed <-chan struct{}, publisher statePublisher) {
	stateTicker := time.NewTicker(2 * time.Second)
	defer stateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmdChan:
			if !ok {
				return
			}
			if err := session.Handle(ctx, cmd); err != nil {
				entry := logrus.WithFields(logrus.Fields{
					"action": cmd.Action,
					"error":  err.Error(),
				})
				if errors.Is(err, mixer.ErrOutputUnavailable) {
					entry.Error("Audio output unavailable")
				} else {
					entry.Warn("Command failed")
				}
			}
			publisher.PublishState()
		case <-changed:
			publisher.PublishState()
		case <-stateTicker.C:
			publisher.PublishState()
		}
	}
}
