package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"fastbot/internal/logging"
	"fastbot/internal/model"
	"fastbot/internal/monitor"
)

var (
	monitorDevice string
	monitorDelay  time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <snapshot-dir>",
	Short: "Replay recorded snapshots while watching them live in the bubbletea dashboard",
	Long: `monitor feeds every snapshot file in <snapshot-dir>, in lexical filename
order, through a single shared Model at the given --delay, while the
graph monitor dashboard renders live counts as states arrive. Press q,
esc, or ctrl+c to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorDevice, "device", "monitor-device", "Device id to replay snapshots as")
	monitorCmd.Flags().DurationVar(&monitorDelay, "delay", 500*time.Millisecond, "Delay between replayed snapshots")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	log := logging.Get(logging.CategoryCLI)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := snapshotFiles(args[0])
	if err != nil {
		return err
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

	agentsFn := func() []monitor.AgentSnapshot {
		agents := m.Agents()
		snaps := make([]monitor.AgentSnapshot, len(agents))
		for i, ag := range agents {
			snaps[i] = monitor.AgentSnapshot{DeviceID: ag.DeviceID, BlockTimes: ag.BlockTimes()}
		}
		return snaps
	}

	go replaySnapshots(m, files, monitorDevice, monitorDelay, log)

	return monitor.Run(m.Graph(), agentsFn)
}

// replaySnapshots feeds each file in files through m.Step at the given
// delay, logging and skipping anything it can't read. It runs on its own
// goroutine so the dashboard's tea.Program can own the main goroutine.
func replaySnapshots(m *model.Model, files []string, device string, delay time.Duration, log *logging.Logger) {
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("monitor: read %s: %v", path, err)
			continue
		}
		activity := filepath.Base(path)
		m.Step(device, raw, activity)
		time.Sleep(delay)
	}
}

// snapshotFiles lists the regular files directly inside dir, sorted by
// name, for a deterministic replay order.
func snapshotFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
