package main

import (
	"fmt"

	"github.com/agusx1211/find-the-calm/internal/config"
	"github.com/agusx1211/find-the-calm/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for showing and validating find-the-calm configuration.",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.WithField("error", err.Error()).Error("Configuration validation failed")
			return err
		}

		fmt.Println("Configuration is valid")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Current Configuration:")
		fmt.Printf("  Audio:\n")
		fmt.Printf("    Sample rate: %d\n", cfg.Audio.SampleRate)
		fmt.Printf("    Buffer size: %d\n", cfg.Audio.BufferSize)
		fmt.Printf("    Ramp time: %s\n", cfg.Audio.RampTime)
		fmt.Printf("    Ducked level: %.2f\n", cfg.Audio.DuckedLevel)
		fmt.Printf("    Default volume: %.2f\n", cfg.Audio.DefaultVolume)
		fmt.Printf("  Layers:\n")
		for _, l := range cfg.Layers {
			fmt.Printf("    %s (%s): %s\n", l.Name, l.Label, l.Asset)
		}
		fmt.Printf("  Preset:\n")
		fmt.Printf("    Dir: %s\n", cfg.Preset.Dir)
		fmt.Printf("    Key: %s\n", cfg.Preset.Key)
		fmt.Printf("  Speech:\n")
		fmt.Printf("    Enabled: %t\n", cfg.Speech.Enabled)
		fmt.Printf("    Language: %s\n", cfg.Speech.Language)
		fmt.Printf("    Auto speak: %t\n", cfg.Speech.AutoSpeak)
		fmt.Printf("  MQTT:\n")
		fmt.Printf("    Enabled: %t\n", cfg.MQTT.Enabled)
		fmt.Printf("    Broker: %s:%d\n", cfg.MQTT.Broker, cfg.MQTT.Port)
		fmt.Printf("    User: %s\n", cfg.MQTT.User)
		fmt.Printf("    Password: %s\n", maskSecret(cfg.MQTT.Password))
		fmt.Printf("    Topic: %s\n", cfg.MQTT.Topic)
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level: %s\n", cfg.Logging.Level)
		fmt.Printf("    Format: %s\n", cfg.Logging.Format)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
