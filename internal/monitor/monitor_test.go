package monitor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"fastbot/internal/action"
	"fastbot/internal/graph"
	"fastbot/internal/state"
)

func sampleState(activity string, hash uint64) *state.State {
	return &state.State{
		Hash:     hash,
		Activity: activity,
		Actions: []*action.Action{
			{Type: action.CLICK, HasTarget: true, TargetHash: 1, Valid: true, Enabled: true},
			{Type: action.BACK, Visited: true, Valid: true, Enabled: true},
		},
	}
}

func TestBuildSnapshotAggregatesStatesAndActions(t *testing.T) {
	g := graph.New()
	g.AddState(sampleState("MainActivity", 1))
	g.AddState(sampleState("SettingsActivity", 2))

	snap := buildSnapshot(g)

	if snap.StateCount != 2 {
		t.Fatalf("expected 2 states, got %d", snap.StateCount)
	}
	if snap.VisitedActions != 2 {
		t.Fatalf("expected 2 visited actions, got %d", snap.VisitedActions)
	}
	if snap.UnvisitedActions != 2 {
		t.Fatalf("expected 2 unvisited actions, got %d", snap.UnvisitedActions)
	}
	if snap.ActionTypeCounts["CLICK"] != 2 {
		t.Fatalf("expected 2 CLICK actions, got %d", snap.ActionTypeCounts["CLICK"])
	}
	if snap.ActivityShares["MainActivity"] != 0.5 {
		t.Fatalf("expected MainActivity share 0.5, got %v", snap.ActivityShares["MainActivity"])
	}
}

func TestDashboardReceivesSnapshotOnAddState(t *testing.T) {
	g := graph.New()
	d := New(g, nil)

	g.AddState(sampleState("MainActivity", 1))

	select {
	case snap := <-d.updates:
		if snap.StateCount != 1 {
			t.Fatalf("expected 1 state in pushed snapshot, got %d", snap.StateCount)
		}
	default:
		t.Fatal("expected a snapshot to be queued after AddState")
	}
}

func TestDashboardUpdateAppliesSnapshotAndRenders(t *testing.T) {
	g := graph.New()
	d := New(g, func() []AgentSnapshot {
		return []AgentSnapshot{{DeviceID: "device-1", BlockTimes: 2}}
	})

	model, cmd := d.Update(snapshotMsg(buildSnapshot(g)))
	dd := model.(*Dashboard)
	if cmd == nil {
		t.Fatal("expected Update to requeue waitForUpdate")
	}
	view := dd.View()
	if view == "" {
		t.Fatal("expected non-empty view")
	}
}

func TestDashboardQuitsOnKeypress(t *testing.T) {
	g := graph.New()
	d := New(g, nil)

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command on 'q'")
	}
}
