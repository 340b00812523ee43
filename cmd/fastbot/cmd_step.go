package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fastbot/internal/logging"
	"fastbot/internal/model"
)

var (
	stepDevice   string
	stepActivity string
)

var stepCmd = &cobra.Command{
	Use:   "step <snapshot-file>",
	Short: "Run one Model.Step over a recorded snapshot and print the resulting Operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runStep,
}

func init() {
	stepCmd.Flags().StringVar(&stepDevice, "device", "cli-device", "Device id to step")
	stepCmd.Flags().StringVar(&stepActivity, "activity", "UnknownActivity", "Activity name for this snapshot")
}

func runStep(cmd *cobra.Command, args []string) error {
	log := logging.Get(logging.CategoryCLI)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", args[0], err)
	}

	pref, err := loadPreference(cfg.Rewrite)
	if err != nil {
		log.Warn("some preference sources failed to load: %v", err)
	}

	m := model.New(cfg, pref)
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("close model: %v", err)
		}
	}()

	op := m.Step(stepDevice, raw, stepActivity)

	out, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
