package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const sampleSnapshotXML = `<hierarchy><node index="0" class="android.widget.FrameLayout" resource-id="" text="" content-desc="" package="com.app" bounds="[0,0][1080,1920]" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false">
	<node index="0" class="android.widget.Button" resource-id="com.app:id/go" text="Go" content-desc="" package="com.app" bounds="[100,200][300,260]" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="false" scrollable="false" long-clickable="false" password="false" selected="false"/>
</node></hierarchy>`

func writeSnapshot(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleSnapshotXML), 0o644); err != nil {
		t.Fatalf("write snapshot fixture: %v", err)
	}
	return path
}

func TestRunStepPrintsAnOperation(t *testing.T) {
	dir := t.TempDir()
	path := writeSnapshot(t, dir, "snapshot.xml")

	configPath = ""
	stepDevice = "test-device"
	stepActivity = "MainActivity"

	if err := runStep(&cobra.Command{}, []string{path}); err != nil {
		t.Fatalf("runStep failed: %v", err)
	}
}

func TestRunStepFailsOnMissingFile(t *testing.T) {
	configPath = ""
	stepDevice = "test-device"
	stepActivity = "MainActivity"

	if err := runStep(&cobra.Command{}, []string{filepath.Join(t.TempDir(), "missing.xml")}); err == nil {
		t.Fatalf("expected an error for a missing snapshot file")
	}
}

func TestRunReuseModelInitThenInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reuse.model")

	if err := runReuseModelInit(&cobra.Command{}, []string{path}); err != nil {
		t.Fatalf("runReuseModelInit failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected reuse model file to exist: %v", err)
	}
	if err := runReuseModelInspect(&cobra.Command{}, []string{path}); err != nil {
		t.Fatalf("runReuseModelInspect failed: %v", err)
	}
}

func TestRunReuseModelInspectFailsOnMissingFile(t *testing.T) {
	if err := runReuseModelInspect(&cobra.Command{}, []string{filepath.Join(t.TempDir(), "missing.model")}); err == nil {
		t.Fatalf("expected an error for a missing reuse model file")
	}
}

func TestSnapshotFilesListsOnlyRegularFilesSorted(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "b.xml")
	writeSnapshot(t, dir, "a.xml")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := snapshotFiles(dir)
	if err != nil {
		t.Fatalf("snapshotFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.xml" || filepath.Base(files[1]) != "b.xml" {
		t.Fatalf("expected sorted order a.xml, b.xml, got %v", files)
	}
}

func TestRunGraphStatsAndExport(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "1.xml")
	writeSnapshot(t, dir, "2.xml")

	configPath = ""
	graphDevice = "graph-device"

	if err := runGraphStats(&cobra.Command{}, []string{dir}); err != nil {
		t.Fatalf("runGraphStats failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.sqlite")
	if err := runGraphExport(&cobra.Command{}, []string{dir, out}); err != nil {
		t.Fatalf("runGraphExport failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected sqlite file to exist: %v", err)
	}
}

func TestLoadConfigDefaultsWhenPathUnset(t *testing.T) {
	configPath = ""
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected a non-nil default config")
	}
}
