// Package action defines the gesture vocabulary and the per-state Action
// records the engine selects from and executes (spec.md §3, §4.2, §6.2).
package action

import "fastbot/internal/xhash"

// Type enumerates the gestures the engine can emit. The ordering is the
// wire-stable enum order from spec.md §6.2 and must never change.
type Type int

const (
	NOP Type = iota
	BACK
	FEED
	CLICK
	LONG_CLICK
	SCROLL_TOP_DOWN
	SCROLL_BOTTOM_UP
	SCROLL_LEFT_RIGHT
	SCROLL_RIGHT_LEFT
	SCROLL_BOTTOM_UP_N
	START
	RESTART
	CLEAN_RESTART
	ACTIVATE
	SHELL_EVENT
	CRASH
)

var typeNames = [...]string{
	"NOP", "BACK", "FEED", "CLICK", "LONG_CLICK",
	"SCROLL_TOP_DOWN", "SCROLL_BOTTOM_UP", "SCROLL_LEFT_RIGHT", "SCROLL_RIGHT_LEFT",
	"SCROLL_BOTTOM_UP_N", "START", "RESTART", "CLEAN_RESTART", "ACTIVATE",
	"SHELL_EVENT", "CRASH",
}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// RequiresTarget reports whether actions of this type act on a widget
// target rather than being a bare device-level gesture.
func (t Type) RequiresTarget() bool {
	switch t {
	case CLICK, LONG_CLICK, SCROLL_TOP_DOWN, SCROLL_BOTTOM_UP, SCROLL_LEFT_RIGHT, SCROLL_RIGHT_LEFT, SCROLL_BOTTOM_UP_N, FEED:
		return true
	default:
		return false
	}
}

// BasePriority is the per-action-type contribution to priority_by_action_type
// (spec.md §4.4). The ordering mirrors how target-bearing gestures are
// preferred over bookkeeping ones; BACK and device-level actions sit low so
// they only surface once nothing else is viable.
func (t Type) BasePriority() int {
	switch t {
	case CLICK:
		return 10
	case LONG_CLICK:
		return 8
	case SCROLL_TOP_DOWN, SCROLL_BOTTOM_UP, SCROLL_LEFT_RIGHT, SCROLL_RIGHT_LEFT, SCROLL_BOTTOM_UP_N:
		return 6
	case FEED:
		return 9
	case BACK:
		return 2
	case NOP:
		return 0
	default:
		return 1
	}
}

// Action is a generic state-action record (spec.md §3 "Action (generic)").
// TargetHash is zero for target-less actions (e.g. BACK).
type Action struct {
	ID          int
	Type        Type
	TargetHash  uint64
	HasTarget   bool
	Priority    int
	Q           float64
	Q2          float64
	VisitCount  int
	Visited     bool
	Valid       bool
	Enabled     bool
	Duplicates  int // widget duplicate count for this action's target, from State
}

// Hash is the ActivityStateAction composite: action-type, optional target
// mixin, and the owning state's hash (spec.md §3 "ActivityStateAction").
// This is Graph's own key for visited/unvisited node-action bookkeeping and
// must stay keyed to the exact state instance.
func (a *Action) Hash(stateHash uint64) uint64 {
	h := xhash.Int(int(a.Type))
	if a.HasTarget {
		h = xhash.Combine(h, a.TargetHash)
	}
	h = xhash.Combine(h, stateHash)
	return h
}

// ActivityHash is the ActivityNameAction composite: action-type, optional
// target mixin, and the owning activity's name in place of the state hash
// (spec.md §3 "ActivityNameAction"). Unlike Hash, this deliberately omits
// the state hash so the same widget+action recurring on a different State
// instance of the same activity still maps to the same key, which is what
// lets the reuse model and the agent's Q-tables generalize toward activities
// they haven't seen in this exact shape before (spec.md §4.4 strategies 2
// and 4). Every reuse-model and Q-table lookup must key off this, never off
// Hash.
func (a *Action) ActivityHash(activity string) uint64 {
	h := xhash.Int(int(a.Type))
	if a.HasTarget {
		h = xhash.Combine(h, a.TargetHash)
	}
	h = xhash.Combine(h, xhash.String(activity))
	return h
}

// IsSaturated implements invariant 4 of spec.md §3: for a target-bearing
// action, saturation requires more visits than the number of duplicate
// widgets sharing that target's hash; a target-less action saturates on its
// first visit.
func (a *Action) IsSaturated() bool {
	if a.HasTarget {
		return a.VisitCount > 1+a.Duplicates
	}
	return a.VisitCount >= 1
}

// MarkVisited bumps the monotonic visit counter and sets the visited flag
// (spec.md §3 invariant 3).
func (a *Action) MarkVisited() {
	a.VisitCount++
	a.Visited = true
}

// Filter selects and weights a subset of actions for random_pick /
// greedy_pick_max_q / count_priority (spec.md §4.2).
type Filter interface {
	Include(a *Action) bool
	Priority(a *Action) int
}

// validFilter admits only valid, enabled actions.
type validFilter struct{}

func (validFilter) Include(a *Action) bool { return a.Valid && a.Enabled }
func (validFilter) Priority(a *Action) int  { return a.Priority }

// ValidFilter is the base "valid + enabled" filter used throughout §4.2/4.4.
func ValidFilter() Filter { return validFilter{} }

// unvisitedFilter admits only actions never visited, on top of validFilter.
type unvisitedFilter struct{}

func (unvisitedFilter) Include(a *Action) bool { return a.Valid && a.Enabled && !a.Visited }
func (unvisitedFilter) Priority(a *Action) int  { return a.Priority }

// UnvisitedFilter is "unvisited, enabled, valid" (spec.md §4.2 random_pick_unvisited).
func UnvisitedFilter() Filter { return unvisitedFilter{} }

// unsaturatedFilter admits only actions that are not yet saturated.
type unsaturatedFilter struct{}

func (unsaturatedFilter) Include(a *Action) bool { return a.Valid && a.Enabled && !a.IsSaturated() }
func (unsaturatedFilter) Priority(a *Action) int  { return a.Priority }

// UnsaturatedFilter admits valid, enabled, not-yet-saturated actions.
func UnsaturatedFilter() Filter { return unsaturatedFilter{} }

// qPriorityFilter is "valid + Q-priority": priority = base + ceil(10*Q)
// (spec.md §4.4 strategy 5, epsilon-greedy).
type qPriorityFilter struct{ useQ2 bool }

func (qPriorityFilter) Include(a *Action) bool { return a.Valid && a.Enabled }
func (f qPriorityFilter) Priority(a *Action) int {
	q := a.Q
	if f.useQ2 {
		q = a.Q2
	}
	boost := int(q * 10)
	if float64(boost) < q*10 {
		boost++
	}
	return a.Priority + boost
}

// QPriorityFilter builds the epsilon-greedy Q-priority filter; useQ2
// selects the Double-SARSA secondary Q function.
func QPriorityFilter(useQ2 bool) Filter { return qPriorityFilter{useQ2: useQ2} }

// TypeGatedFilter admits only actions whose Type is in the allow-set.
type TypeGatedFilter struct {
	Allow map[Type]bool
	Base  Filter
}

func (f TypeGatedFilter) Include(a *Action) bool {
	return f.Allow[a.Type] && (f.Base == nil || f.Base.Include(a))
}

func (f TypeGatedFilter) Priority(a *Action) int {
	if f.Base != nil {
		return f.Base.Priority(a)
	}
	return a.Priority
}
