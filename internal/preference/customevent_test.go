package preference

import (
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/geom"
)

func TestNextCustomActionInjectsWhenProbAlwaysFires(t *testing.T) {
	p := newPreference()
	p.events = []CustomEvent{
		{Activity: "MainActivity", Prob: 1, Times: 1, Actions: []CustomAction{
			{Type: action.CLICK, Bounds: &geom.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}},
			{Type: action.BACK},
		}},
	}

	first, ok := p.NextCustomAction(nil, "MainActivity")
	if !ok || first.Type != action.CLICK {
		t.Fatalf("expected first queued action to be CLICK, got %+v ok=%v", first, ok)
	}
	second, ok := p.NextCustomAction(nil, "MainActivity")
	if !ok || second.Type != action.BACK {
		t.Fatalf("expected second queued action to be BACK, got %+v ok=%v", second, ok)
	}

	if p.events[0].Times != 0 {
		t.Fatalf("expected times decremented to 0, got %d", p.events[0].Times)
	}

	if _, ok := p.NextCustomAction(nil, "MainActivity"); ok {
		t.Fatal("expected no further injection once times is exhausted")
	}
}

func TestNextCustomActionNeverFiresForOtherActivity(t *testing.T) {
	p := newPreference()
	p.events = []CustomEvent{
		{Activity: "OtherActivity", Prob: 1, Times: 5, Actions: []CustomAction{{Type: action.CLICK}}},
	}
	if _, ok := p.NextCustomAction(nil, "MainActivity"); ok {
		t.Fatal("expected no injection for a non-matching activity")
	}
}

func TestNextCustomActionPatchesXPathBoundsFromTree(t *testing.T) {
	root := leaf("android.widget.FrameLayout", "", geom.Rect{Left: 0, Top: 0, Right: 1000, Bottom: 1000})
	target := leaf("android.widget.Button", "com.app:id/confirm", geom.Rect{Left: 10, Top: 20, Right: 30, Bottom: 40})
	root.AddChild(target)

	p := newPreference()
	p.events = []CustomEvent{
		{Activity: "MainActivity", Prob: 1, Times: 1, Actions: []CustomAction{
			{Type: action.CLICK, XPath: &XPathSpec{ResourceID: "com.app:id/confirm"}},
		}},
	}

	act, ok := p.NextCustomAction(root, "MainActivity")
	if !ok {
		t.Fatal("expected an injected action")
	}
	if act.Bounds == nil || *act.Bounds != target.Bounds {
		t.Fatalf("expected bounds patched from xpath match, got %+v", act.Bounds)
	}
}
