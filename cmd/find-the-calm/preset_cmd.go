package main

import (
	"fmt"
	"sort"

	"github.com/agusx1211/find-the-calm/internal/logger"
	"github.com/agusx1211/find-the-calm/internal/preset"
	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Inspect or clear the saved mixer preset",
}

var presetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		state, ok := store.Load()
		if !ok {
			fmt.Println("No saved preset")
			return nil
		}

		fmt.Printf("Preset %q:\n", store.Key())
		fmt.Printf("  Master: %.0f%%\n", state.MasterVolume*100)
		if state.Solo != "" {
			fmt.Printf("  Solo: %s\n", state.Solo)
		}
		names := make([]string, 0, len(state.Layers))
		for name := range state.Layers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			l := state.Layers[name]
			fmt.Printf("  %s: %.0f%% muted=%t\n", name, l.Volume*100, l.Muted)
		}
		return nil
	},
}

var presetClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear preset: %w", err)
		}
		fmt.Println("Preset cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetShowCmd)
	presetCmd.AddCommand(presetClearCmd)
}

func openStore() (*preset.Store, error) {
	if err := logger.Setup("warn", "text"); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return preset.NewStore(preset.NewFileKV(cfg.Preset.Dir), cfg.Preset.Key), nil
}
