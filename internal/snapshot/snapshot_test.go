package snapshot

import (
	"path/filepath"
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/graph"
	"fastbot/internal/state"
)

func sampleState(activity string, hash uint64) *state.State {
	return &state.State{
		Hash:     hash,
		Activity: activity,
		Actions: []*action.Action{
			{Type: action.CLICK, HasTarget: true, TargetHash: 7, Valid: true, Enabled: true, Priority: 10},
			{Type: action.BACK, Valid: true, Enabled: true, Visited: true, Priority: 2},
		},
	}
}

func TestExportWritesStatesActionsAndActivityStats(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	g := graph.New()
	g.AddState(sampleState("MainActivity", 1))
	g.AddState(sampleState("SettingsActivity", 2))

	if err := Export(db, g); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var stateCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM states`).Scan(&stateCount); err != nil {
		t.Fatalf("query states: %v", err)
	}
	if stateCount != 2 {
		t.Fatalf("expected 2 states, got %d", stateCount)
	}

	var actionCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM actions`).Scan(&actionCount); err != nil {
		t.Fatalf("query actions: %v", err)
	}
	if actionCount != 4 {
		t.Fatalf("expected 4 actions across 2 states, got %d", actionCount)
	}

	var share float64
	if err := db.QueryRow(`SELECT share FROM activity_stats WHERE activity = ?`, "MainActivity").Scan(&share); err != nil {
		t.Fatalf("query activity_stats: %v", err)
	}
	if share != 0.5 {
		t.Fatalf("expected MainActivity share 0.5, got %v", share)
	}
}

func TestExportIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	g := graph.New()
	g.AddState(sampleState("MainActivity", 1))

	if err := Export(db, g); err != nil {
		t.Fatalf("first Export: %v", err)
	}
	if err := Export(db, g); err != nil {
		t.Fatalf("second Export: %v", err)
	}

	var stateCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM states`).Scan(&stateCount); err != nil {
		t.Fatalf("query states: %v", err)
	}
	if stateCount != 1 {
		t.Fatalf("expected exports to replace rather than accumulate, got %d states", stateCount)
	}
}
