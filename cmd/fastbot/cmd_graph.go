package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fastbot/internal/logging"
	"fastbot/internal/model"
	"fastbot/internal/snapshot"
)

var graphDevice string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Replay recorded snapshots through a Model and inspect the resulting Graph",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats <snapshot-dir>",
	Short: "Replay a snapshot directory and print summary Graph statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphStats,
}

var graphExportCmd = &cobra.Command{
	Use:   "export <snapshot-dir> <out.sqlite>",
	Short: "Replay a snapshot directory and export the resulting Graph to SQLite",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraphExport,
}

func init() {
	graphStatsCmd.Flags().StringVar(&graphDevice, "device", "graph-device", "Device id to replay snapshots as")
	graphExportCmd.Flags().StringVar(&graphDevice, "device", "graph-device", "Device id to replay snapshots as")
	graphCmd.AddCommand(graphStatsCmd, graphExportCmd)
}

func replayDir(dir string) (*model.Model, error) {
	log := logging.Get(logging.CategoryCLI)

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	files, err := snapshotFiles(dir)
	if err != nil {
		return nil, err
	}

	pref, err := loadPreference(cfg.Rewrite)
	if err != nil {
		log.Warn("some preference sources failed to load: %v", err)
	}

	m := model.New(cfg, pref)
	replaySnapshots(m, files, graphDevice, 0, log)
	return m, nil
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	m, err := replayDir(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	g := m.Graph()
	states := g.States()

	actionTotal, visited := 0, 0
	activities := make(map[string]struct{})
	for _, s := range states {
		activities[s.Activity] = struct{}{}
		for _, a := range s.Actions {
			actionTotal++
			if a.Visited {
				visited++
			}
		}
	}

	fmt.Printf("timestamp:        %s\n", humanize.Comma(int64(g.Timestamp())))
	fmt.Printf("states:           %s\n", humanize.Comma(int64(len(states))))
	fmt.Printf("activities:       %s\n", humanize.Comma(int64(len(activities))))
	fmt.Printf("actions:          %s\n", humanize.Comma(int64(actionTotal)))
	fmt.Printf("visited actions:  %s\n", humanize.Comma(int64(visited)))
	return nil
}

func runGraphExport(cmd *cobra.Command, args []string) error {
	m, err := replayDir(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	outPath := args[1]
	db, err := snapshot.Open(outPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := snapshot.Export(db, m.Graph()); err != nil {
		return fmt.Errorf("export graph to %s: %w", outPath, err)
	}
	fmt.Printf("exported graph to %s\n", outPath)
	return nil
}
