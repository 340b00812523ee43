package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fastbot/internal/agent"
)

var reuseModelCmd = &cobra.Command{
	Use:   "reuse-model",
	Short: "Inspect or seed a saved ReuseModel file",
}

var reuseModelInspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Print summary statistics for a saved ReuseModel file",
	Args:  cobra.ExactArgs(1),
	RunE:  runReuseModelInspect,
}

var reuseModelInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write a fresh, empty ReuseModel file",
	Args:  cobra.ExactArgs(1),
	RunE:  runReuseModelInit,
}

func init() {
	reuseModelCmd.AddCommand(reuseModelInspectCmd, reuseModelInitCmd)
}

func runReuseModelInspect(cmd *cobra.Command, args []string) error {
	rm, err := agent.LoadReuseModel(args[0])
	if err != nil {
		return fmt.Errorf("load reuse model %s: %w", args[0], err)
	}

	entries, activities := rm.Stats()
	fmt.Printf("entries:    %s\n", humanize.Comma(int64(entries)))
	fmt.Printf("activities: %s\n", humanize.Comma(int64(activities)))
	return nil
}

func runReuseModelInit(cmd *cobra.Command, args []string) error {
	rm := agent.NewReuseModel()
	if err := rm.Save(args[0]); err != nil {
		return fmt.Errorf("save reuse model %s: %w", args[0], err)
	}
	fmt.Printf("wrote empty reuse model to %s\n", args[0])
	return nil
}
