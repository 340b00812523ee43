package monitor

import "fastbot/internal/graph"

// Snapshot is a point-in-time readout of a Graph, recomputed on every
// AddState notification. It is a plain value so the dashboard's tea.Model
// can pass it through a channel without any shared mutable state.
type Snapshot struct {
	Timestamp        int
	StateCount       int
	VisitedActions   int
	UnvisitedActions int
	ActionTypeCounts map[string]int
	ActivityShares   map[string]float64
}

// buildSnapshot derives a Snapshot purely from Graph's existing accessors;
// it never adds bookkeeping of its own, the same approach internal/snapshot
// takes for its SQLite export.
func buildSnapshot(g *graph.Graph) Snapshot {
	snap := Snapshot{
		Timestamp:        g.Timestamp(),
		ActionTypeCounts: make(map[string]int),
		ActivityShares:   make(map[string]float64),
	}

	states := g.States()
	snap.StateCount = len(states)

	activities := make(map[string]struct{})
	for _, s := range states {
		activities[s.Activity] = struct{}{}
		for _, a := range s.Actions {
			snap.ActionTypeCounts[a.Type.String()]++
			if a.Visited {
				snap.VisitedActions++
			} else {
				snap.UnvisitedActions++
			}
		}
	}
	for activity := range activities {
		snap.ActivityShares[activity] = g.ActivityShare(activity)
	}

	return snap
}
