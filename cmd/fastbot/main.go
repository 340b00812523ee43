// Package main implements the fastbot CLI: a convenience wrapper around
// the fastbot engine for feeding recorded snapshots through Model, poking
// at a reuse model, and inspecting or watching a Graph. It mirrors how
// the original project's native test harness drove the engine from
// outside; it is not one of the four core subsystems and never sits on
// Model.Step's hot path.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fastbot/internal/config"
	"fastbot/internal/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fastbot",
	Short: "Drive, inspect, and watch the fastbot exploration engine",
	Long: `fastbot is an on-device automated UI exploration engine.

This binary is a convenience front end over the importable fastbot
module: it feeds recorded snapshots through Model.Step, saves and
inspects reuse models, exports or watches a live Graph, and replays
recorded sessions through the bubbletea monitor dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		return logging.Init(logging.Config{Level: level})
	},
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a fastbot.yaml config file (defaults to DefaultConfig)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		stepCmd,
		serveCmd,
		reuseModelCmd,
		monitorCmd,
		graphCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
