package state

import (
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/uitree"
	"fastbot/internal/widget"
)

func buttonTree() *uitree.Element {
	root := uitree.NewElement()
	root.Class = "android.widget.FrameLayout"
	root.Flags.Scrollable = true

	a := uitree.NewElement()
	a.Class = "android.widget.Button"
	a.ResourceID = "com.app:id/a"
	a.Text = "A"
	a.Flags.Clickable = true
	a.Flags.Enabled = true

	b := uitree.NewElement()
	b.Class = "android.widget.Button"
	b.ResourceID = "com.app:id/b"
	b.Text = "B"
	b.Flags.Clickable = true
	b.Flags.Enabled = true

	root.AddChild(a)
	root.AddChild(b)
	return root
}

var defaultOpts = Options{
	Widget: widget.Options{IncludeText: true, TextLengthLimit: 32, IncludeContentDesc: true},
}

func TestBuildAppendsTrailingBack(t *testing.T) {
	s := Build(buttonTree(), "com.app.Main", defaultOpts)
	if len(s.Actions) == 0 || s.Actions[len(s.Actions)-1].Type != action.BACK {
		t.Fatalf("expected the last action to be BACK, got %+v", s.Actions)
	}
}

func TestBuildDeduplicatesIdenticalWidgets(t *testing.T) {
	root := uitree.NewElement()
	root.Flags.Scrollable = true
	for i := 0; i < 3; i++ {
		item := uitree.NewElement()
		item.Class = "android.widget.Button"
		item.ResourceID = "com.app:id/repeat"
		item.Text = "Same"
		item.Flags.Clickable = true
		root.AddChild(item)
	}

	// The scrollable root is a widget of its own; the three identical
	// buttons collapse into the one widget after it.
	s := Build(root, "com.app.List", defaultOpts)
	if len(s.Widgets) != 2 {
		t.Fatalf("expected the root widget plus exactly one deduplicated button widget, got %d", len(s.Widgets))
	}
	if got := len(s.Duplicates[s.Widgets[1].Hash()]); got != 2 {
		t.Fatalf("expected 2 duplicate extras, got %d", got)
	}
}

func TestWidgetsLenPlusDuplicatesEqualsOriginalCount(t *testing.T) {
	root := uitree.NewElement()
	for i := 0; i < 5; i++ {
		item := uitree.NewElement()
		item.Class = "android.widget.Button"
		item.ResourceID = "com.app:id/same"
		item.Flags.Clickable = true
		root.AddChild(item)
	}
	unique := uitree.NewElement()
	unique.Class = "android.widget.Button"
	unique.ResourceID = "com.app:id/unique"
	unique.Flags.Clickable = true
	root.AddChild(unique)

	s := Build(root, "com.app.List", defaultOpts)
	total := len(s.Widgets)
	for _, dups := range s.Duplicates {
		total += len(dups)
	}
	if total != 6 {
		t.Fatalf("expected widgets+duplicates to equal original widget count 6, got %d", total)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	s1 := Build(buttonTree(), "com.app.Main", defaultOpts)
	s2 := Build(buttonTree(), "com.app.Main", defaultOpts)
	if s1.Hash != s2.Hash {
		t.Fatalf("expected identical trees to produce identical state hashes")
	}
}

func TestHashDiffersByActivity(t *testing.T) {
	s1 := Build(buttonTree(), "com.app.Main", defaultOpts)
	s2 := Build(buttonTree(), "com.app.Other", defaultOpts)
	if s1.Hash == s2.Hash {
		t.Fatalf("expected different activities to produce different state hashes")
	}
}

func TestCountPriorityExcludesBackByDefault(t *testing.T) {
	s := Build(buttonTree(), "com.app.Main", defaultOpts)
	for _, a := range s.Actions {
		a.Priority = 1
	}
	withBack := s.CountPriority(action.ValidFilter(), true)
	withoutBack := s.CountPriority(action.ValidFilter(), false)
	if withBack-withoutBack != 1 {
		t.Fatalf("expected exactly one extra unit of priority from BACK, got delta %d", withBack-withoutBack)
	}
}

func TestGreedyPickMaxQPicksHighestPriority(t *testing.T) {
	s := Build(buttonTree(), "com.app.Main", defaultOpts)
	for i, a := range s.Actions {
		a.Priority = i
	}
	best := s.GreedyPickMaxQ(action.ValidFilter())
	if best != s.Actions[len(s.Actions)-1] {
		t.Fatalf("expected the last (highest-priority) action to win")
	}
}

func TestRandomPickUnvisitedFallsBackToBack(t *testing.T) {
	s := Build(buttonTree(), "com.app.Main", defaultOpts)
	for _, a := range s.Actions {
		if a.Type != action.BACK {
			a.MarkVisited()
		}
	}
	picked := s.RandomPickUnvisited()
	if picked == nil || picked.Type != action.BACK {
		t.Fatalf("expected fallback to BACK once every other action is visited, got %+v", picked)
	}
}

func TestIsSaturatedTargetless(t *testing.T) {
	back := &action.Action{Type: action.BACK, HasTarget: false}
	if back.IsSaturated() {
		t.Fatalf("unvisited target-less action should not be saturated")
	}
	back.MarkVisited()
	if !back.IsSaturated() {
		t.Fatalf("target-less action should saturate on its first visit")
	}
}

func TestClearAndFillDetailsPreservesHashIdentity(t *testing.T) {
	s := Build(buttonTree(), "com.app.Main", defaultOpts)
	before := s.Hash
	original := Build(buttonTree(), "com.app.Main", defaultOpts)

	s.ClearDetails()
	if s.Hash != before {
		t.Fatalf("expected hash identity to survive ClearDetails")
	}
	for _, w := range s.Widgets {
		if w.Class != "" || w.ResourceID != "" || w.Text != "" {
			t.Fatalf("expected widget details cleared, got %+v", w)
		}
	}

	s.FillDetails(original)
	for i, w := range s.Widgets {
		ow := original.Widgets[i]
		if w.Class != ow.Class || w.ResourceID != ow.ResourceID {
			t.Fatalf("expected details restored from the matching state")
		}
	}
}

func TestResolveAtRotatesThroughDuplicates(t *testing.T) {
	root := uitree.NewElement()
	for i := 0; i < 3; i++ {
		item := uitree.NewElement()
		item.Class = "android.widget.Button"
		item.ResourceID = "com.app:id/same"
		item.Flags.Clickable = true
		root.AddChild(item)
	}
	s := Build(root, "com.app.List", defaultOpts)
	clickAction := s.Actions[0]

	seen := map[*widget.Widget]bool{}
	for i := 0; i < 3; i++ {
		w := s.ResolveAt(clickAction)
		if w == nil {
			t.Fatalf("expected ResolveAt to return a widget")
		}
		seen[w] = true
		clickAction.VisitCount++
	}
	if len(seen) != 3 {
		t.Fatalf("expected rotation to visit all 3 duplicate widgets, saw %d distinct", len(seen))
	}
}
