// Package state builds and operates on State, the deduplicated snapshot of
// one screen's widgets and actions (spec.md §3, §4.2).
package state

import (
	"math/rand"
	"sort"

	"fastbot/internal/action"
	"fastbot/internal/geom"
	"fastbot/internal/uitree"
	"fastbot/internal/widget"
	"fastbot/internal/xhash"
)

// Options bundles the widget-abstraction and hash-ordering toggles State
// needs while walking an Element tree (spec.md §3, §4.1).
type Options struct {
	Widget        widget.Options
	OrderedHash   bool // compile-time choice: ordered rotate-mix fold vs unordered XOR fold
}

// State is the canonical, deduplicated representation of one screen
// (spec.md §3 "State").
type State struct {
	ID         int
	Hash       uint64
	Activity   string
	Widgets    []*widget.Widget
	Duplicates map[uint64][]*widget.Widget
	Actions    []*action.Action

	// VisitCount counts how many times Graph.AddState has resolved to this
	// state (first insertion counts as the first visit); used by the
	// agent's reward normalization (spec.md §4.4 "visit_count(new_state)").
	VisitCount int

	detailsCleared bool
}

// Build walks root, deduplicating widgets by composite hash and emitting
// one Action per derived action-type plus a trailing target-less BACK
// (spec.md §4.2).
func Build(root *uitree.Element, activity string, opts Options) *State {
	s := &State{
		Activity:   activity,
		Duplicates: make(map[uint64][]*widget.Widget),
	}

	order := []*widget.Widget{}
	seen := make(map[uint64]*widget.Widget)

	var walk func(e *uitree.Element, nearestActionable *widget.Widget)
	walk = func(e *uitree.Element, nearestActionable *widget.Widget) {
		parent := nearestActionable
		if widget.HasActions(e) {
			w := widget.New(e, nearestActionable, opts.Widget)
			h := w.Hash()
			if _, ok := seen[h]; ok {
				s.Duplicates[h] = append(s.Duplicates[h], w)
			} else {
				seen[h] = w
				order = append(order, w)
			}
			parent = w
		}
		for _, c := range e.Children {
			walk(c, parent)
		}
	}
	if root != nil {
		walk(root, nil)
	}
	s.Widgets = order

	s.Hash = computeHash(activity, order, opts.OrderedHash)

	for _, w := range s.Widgets {
		dupCount := len(s.Duplicates[w.Hash()])
		for _, at := range w.Actions {
			s.Actions = append(s.Actions, &action.Action{
				Type:       at,
				TargetHash: w.Hash(),
				HasTarget:  true,
				Valid:      true,
				Enabled:    true,
				Duplicates: dupCount,
			})
		}
	}
	s.Actions = append(s.Actions, &action.Action{
		Type:      action.BACK,
		HasTarget: false,
		Valid:     true,
		Enabled:   true,
	})

	return s
}

// computeHash implements spec.md §3 "State-hash composition":
// activity_hash*31<<5 XOR (combine_hash(widgets)<<1), where the ordered
// variant sorts widgets by hash first to keep the fold deterministic.
func computeHash(activity string, widgets []*widget.Widget, ordered bool) uint64 {
	activityHash := xhash.String(activity)
	base := (activityHash * 31) << 5

	hashes := make([]uint64, len(widgets))
	for i, w := range widgets {
		hashes[i] = w.Hash()
	}

	var combined uint64
	if ordered {
		sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
		for _, h := range hashes {
			combined = xhash.CombineOrdered(combined, h)
		}
	} else {
		for _, h := range hashes {
			combined = xhash.Combine(combined, h)
		}
	}

	return base ^ (combined << 1)
}

// CountPriority sums filter.Priority(a) over actions filter admits,
// optionally including the trailing BACK action (spec.md §4.2).
func (s *State) CountPriority(f action.Filter, includeBack bool) int {
	total := 0
	for _, a := range s.Actions {
		if a.Type == action.BACK && !includeBack {
			continue
		}
		if f.Include(a) {
			total += f.Priority(a)
		}
	}
	return total
}

// RandomPick performs a priority-weighted pick over actions f admits, with
// ties broken by iteration order (spec.md §4.2).
func (s *State) RandomPick(f action.Filter, includeBack bool) *action.Action {
	total := s.CountPriority(f, includeBack)
	if total <= 0 {
		return nil
	}
	r := rand.Intn(total)
	acc := 0
	for _, a := range s.Actions {
		if a.Type == action.BACK && !includeBack {
			continue
		}
		if !f.Include(a) {
			continue
		}
		acc += f.Priority(a)
		if r < acc {
			return a
		}
	}
	return nil
}

// GreedyPickMaxQ returns the action with the highest filter priority,
// ties resolved by first-found (spec.md §4.2).
func (s *State) GreedyPickMaxQ(f action.Filter) *action.Action {
	var best *action.Action
	bestPriority := 0
	for _, a := range s.Actions {
		if !f.Include(a) {
			continue
		}
		p := f.Priority(a)
		if best == nil || p > bestPriority {
			best = a
			bestPriority = p
		}
	}
	return best
}

// RandomPickUnvisited is the "unvisited, enabled, valid" shortcut, falling
// back to BACK when nothing else matched and the filter admits it
// (spec.md §4.2).
func (s *State) RandomPickUnvisited() *action.Action {
	if a := s.RandomPick(action.UnvisitedFilter(), false); a != nil {
		return a
	}
	for _, a := range s.Actions {
		if a.Type == action.BACK && action.UnvisitedFilter().Include(a) {
			return a
		}
	}
	return nil
}

// ResolveAt returns the physical widget a target action should act on this
// time, rotating through the primary widget and its duplicates by
// visit_count mod (duplicates.len()+1) so
// repeated "same" actions actually touch different physical widgets over
// time (spec.md §4.2).
func (s *State) ResolveAt(a *action.Action) *widget.Widget {
	if !a.HasTarget {
		return nil
	}
	var primary *widget.Widget
	for _, w := range s.Widgets {
		if w.Hash() == a.TargetHash {
			primary = w
			break
		}
	}
	dups := s.Duplicates[a.TargetHash]
	if len(dups) == 0 || primary == nil {
		return primary
	}
	all := append([]*widget.Widget{primary}, dups...)
	return all[a.VisitCount%len(all)]
}

// IsSaturated reports whether a has reached its saturation threshold
// (spec.md §3 invariant 4); delegated to Action, which already carries its
// target's duplicate count from construction.
func (s *State) IsSaturated(a *action.Action) bool {
	return a.IsSaturated()
}

// IsDetailsCleared reports whether ClearDetails has shed this state's
// descriptive strings (spec.md §4.3 add_state: "fill_details into the
// stored copy when it is detail-free").
func (s *State) IsDetailsCleared() bool {
	return s.detailsCleared
}

// ClearDetails sheds the descriptive strings every widget carries (text,
// class, resource-id, bounds, content-desc) while keeping hash identity
// intact, to save memory on states that are no longer the current one
// (spec.md §4.2).
func (s *State) ClearDetails() {
	if s.detailsCleared {
		return
	}
	for _, w := range s.Widgets {
		w.Class, w.ResourceID, w.Text, w.ContentDesc = "", "", "", ""
		w.Bounds = geom.Rect{}
	}
	s.detailsCleared = true
}

// FillDetails repopulates a detail-free State's widget strings from a
// matching State (same hash, same widget ordering), used by Graph.AddState
// when a newly parsed state's widgets still carry details that the stored,
// detail-free copy lacks (spec.md §4.3).
func (s *State) FillDetails(other *State) {
	if !s.detailsCleared || other == nil || len(other.Widgets) != len(s.Widgets) {
		return
	}
	for i, w := range s.Widgets {
		ow := other.Widgets[i]
		w.Class, w.ResourceID, w.Text, w.ContentDesc = ow.Class, ow.ResourceID, ow.Text, ow.ContentDesc
		w.Bounds = ow.Bounds
	}
	s.detailsCleared = false
}
