// Package graph is the deduplicated, ordered store of States and Actions
// the whole engine accumulates into (spec.md §3, §4.3).
package graph

import (
	"sync"

	"bitbucket.org/creachadair/stringset"

	"fastbot/internal/action"
	"fastbot/internal/state"
)

// Listener is notified synchronously, in registration order, every time
// add_state resolves to a canonical state — new or pre-existing
// (spec.md §4.3, §5 ordering guarantees).
type Listener interface {
	OnAddState(s *state.State)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(s *state.State)

func (f ListenerFunc) OnAddState(s *state.State) { f(s) }

// activityStats tracks the per-activity state count and its share of the
// total distribution (spec.md §3 "activity → (count, share) map").
type activityStats struct {
	count int
	share float64
}

// Graph is the engine's ordered, deduplicated store of States and Actions
// (spec.md §3 "Graph"). A Graph is not safe for concurrent AddState calls;
// the engine's single driver thread owns it (spec.md §5).
type Graph struct {
	mu sync.Mutex

	states     map[uint64]*state.State
	order      []*state.State
	activities stringset.Set
	stats      map[string]*activityStats
	total      int

	visited   map[uint64]*action.Action
	unvisited map[uint64]*action.Action
	nextActionID int
	actionTypeCounts map[action.Type]int

	listeners []Listener
	timestamp int
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		states:           make(map[uint64]*state.State),
		activities:       stringset.New(),
		stats:            make(map[string]*activityStats),
		visited:          make(map[uint64]*action.Action),
		unvisited:        make(map[uint64]*action.Action),
		actionTypeCounts: make(map[action.Type]int),
	}
}

// AddListener registers l to be notified, in registration order, on every
// subsequent AddState call.
func (g *Graph) AddListener(l Listener) {
	g.mu.Lock()
	g.listeners = append(g.listeners, l)
	g.mu.Unlock()
}

// Timestamp returns the graph's monotonic step counter (spec.md §3).
func (g *Graph) Timestamp() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timestamp
}

// VisitedActivities returns a copy of the graph's visited-activities set,
// every activity name interned so far (spec.md §4.6 step 2 activity
// interning).
func (g *Graph) VisitedActivities() stringset.Set {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activities.Clone()
}

// InternActivity adds name to the visited-activities set if this is the
// first occurrence and returns it (spec.md §4.6 step 2). Go strings are
// already immutable values with no separate "canonical pointer" to share,
// so unlike the original's refcounted string table this exists purely to
// keep the set populated ahead of the first AddState for a fresh activity.
func (g *Graph) InternActivity(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activities.Add(name)
	return name
}

// AddState implements spec.md §4.3 add_state: dedup by hash, listener
// fan-out, activity bookkeeping, and action-id assignment/partitioning.
func (g *Graph) AddState(s *state.State) *state.State {
	g.mu.Lock()

	canonical, existed := g.states[s.Hash]
	if existed {
		if canonical.IsDetailsCleared() {
			canonical.FillDetails(s)
		}
	} else {
		s.ID = len(g.order)
		g.states[s.Hash] = s
		g.order = append(g.order, s)
		canonical = s
	}

	canonical.VisitCount++

	st, ok := g.stats[canonical.Activity]
	if !ok {
		st = &activityStats{}
		g.stats[canonical.Activity] = st
	}
	if !existed {
		st.count++
	}

	g.activities.Add(canonical.Activity)

	g.total++
	for _, stat := range g.stats {
		stat.share = float64(stat.count) / float64(g.total)
	}

	for _, a := range canonical.Actions {
		g.assignAction(a, canonical.Hash)
	}

	g.timestamp++
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	notifyListeners(listeners, canonical)
	return canonical
}

// notifyListeners fans out to every registered listener, in registration
// order, after g.mu has been released but before AddState returns, so the
// fan-out stays synchronous; listeners may read the Graph through its
// accessors but must not mutate it.
func notifyListeners(listeners []Listener, s *state.State) {
	for _, l := range listeners {
		l.OnAddState(s)
	}
}

// assignAction gives a a stable id the first time the graph sees its hash,
// and keeps it partitioned into visited/unvisited per its current flag
// (spec.md §4.3).
func (g *Graph) assignAction(a *action.Action, stateHash uint64) {
	h := a.Hash(stateHash)
	if existing, ok := g.visited[h]; ok {
		a.ID = existing.ID
	} else if existing, ok := g.unvisited[h]; ok {
		a.ID = existing.ID
	} else {
		a.ID = g.nextActionID
		g.nextActionID++
		g.actionTypeCounts[a.Type]++
	}

	if a.Visited {
		delete(g.unvisited, h)
		g.visited[h] = a
	} else {
		if _, already := g.visited[h]; !already {
			g.unvisited[h] = a
		}
	}
}

// ActivityShare returns the current share (count/total) for name.
func (g *Graph) ActivityShare(name string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.stats[name]; ok {
		return st.share
	}
	return 0
}

// ActivityCount returns the number of distinct states seen for name.
func (g *Graph) ActivityCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.stats[name]; ok {
		return st.count
	}
	return 0
}

// TotalDistribution is the sum of per-activity state counts (spec.md §3
// invariant 6); it equals the number of AddState calls that resolved to a
// new, not-yet-seen state hash.
func (g *Graph) TotalDistribution() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, st := range g.stats {
		total += st.count
	}
	return total
}

// Size returns the number of distinct states stored.
func (g *Graph) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// States returns the canonical states in insertion order. The slice is a
// copy; mutating it does not affect the graph.
func (g *Graph) States() []*state.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*state.State, len(g.order))
	copy(out, g.order)
	return out
}
