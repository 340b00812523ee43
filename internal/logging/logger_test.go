package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetBeforeInitIsNoop(t *testing.T) {
	base = nil
	loggers = make(map[Category]*Logger)

	l := Get(CategoryBoot)
	if l != noop {
		t.Fatalf("expected noop logger before Init")
	}
	l.Info("this must not panic: %d", 1)
}

func TestInitWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fastbot.log")

	if err := Init(Config{Level: "debug", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Get(CategoryGraph).Info("state %d added", 42)
	base.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file to contain output")
	}
}

func TestInitRejectsBadLevel(t *testing.T) {
	if err := Init(Config{Level: "not-a-level"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestGetCachesPerCategory(t *testing.T) {
	if err := Init(Config{Level: "info"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	a := Get(CategoryAgent)
	b := Get(CategoryAgent)
	if a != b {
		t.Fatalf("expected Get to return the cached logger for the same category")
	}
}
