package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fastbot/internal/logging"
	"fastbot/internal/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Read newline-delimited step requests from stdin, write Operations to stdout",
	Long: `serve is the long-running counterpart to "step": it reads one JSON
request per line from stdin in the form

  {"device":"emulator-5554","activity":"MainActivity","snapshot":"<base64>"}

runs it through a single shared Model, and writes the resulting Operation
as one JSON line to stdout. It exits cleanly on EOF, standing in for the
original project's JNI bridge loop when there is no JVM in the picture.`,
	RunE: runServe,
}

type stepRequest struct {
	Device   string `json:"device"`
	Activity string `json:"activity"`
	Snapshot string `json:"snapshot"`
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Get(logging.CategoryCLI)

	cfg, err := loadConfig()
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

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req stepRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Warn("serve: malformed request line: %v", err)
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(req.Snapshot)
		if err != nil {
			log.Warn("serve: malformed snapshot for device %s: %v", req.Device, err)
			continue
		}

		op := m.Step(req.Device, raw, req.Activity)
		encoded, err := json.Marshal(op)
		if err != nil {
			log.Warn("serve: marshal operation: %v", err)
			continue
		}
		if _, err := out.Write(encoded); err != nil {
			return fmt.Errorf("serve: write response: %w", err)
		}
		if _, err := out.WriteString("\n"); err != nil {
			return fmt.Errorf("serve: write newline: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("serve: flush: %w", err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("serve: read stdin: %w", err)
	}
	return nil
}
