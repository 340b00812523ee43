package webdemo

import (
	"context"
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/operation"
)

func TestBuildElementMapsEditableInputToEditTextClass(t *testing.T) {
	n := domNode{Tag: "input", Editable: true, Clickable: true, Label: "search", Rect: [4]float64{10, 20, 110, 50}}
	e := buildElement(n, 0)

	if e.Class != "android.widget.EditText" {
		t.Fatalf("expected android.widget.EditText, got %q", e.Class)
	}
	if !e.Flags.Clickable || !e.Flags.LongClickable {
		t.Fatalf("expected editable node to be clickable and long-clickable, got %+v", e.Flags)
	}
	if e.ContentDesc != "search" {
		t.Fatalf("expected content-desc from label, got %q", e.ContentDesc)
	}
	if e.Bounds.Left != 10 || e.Bounds.Top != 20 || e.Bounds.Right != 110 || e.Bounds.Bottom != 50 {
		t.Fatalf("unexpected bounds %+v", e.Bounds)
	}
}

func TestBuildElementFallsBackToRoleWhenLabelEmpty(t *testing.T) {
	n := domNode{Tag: "div", Role: "button", Clickable: true}
	e := buildElement(n, 0)
	if e.ContentDesc != "button" {
		t.Fatalf("expected content-desc to fall back to role, got %q", e.ContentDesc)
	}
	if e.Class != "html.div" {
		t.Fatalf("expected html.div class, got %q", e.Class)
	}
}

func TestBuildElementRecursesIntoChildren(t *testing.T) {
	n := domNode{
		Tag: "div",
		Children: []domNode{
			{Tag: "button", Text: "OK"},
			{Tag: "button", Text: "Cancel"},
		},
	}
	e := buildElement(n, 0)
	if len(e.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(e.Children))
	}
	if e.Children[0].Parent != e {
		t.Fatal("expected child's Parent to point back to the root element")
	}
	if e.Children[1].Text != "Cancel" {
		t.Fatalf("unexpected second child text %q", e.Children[1].Text)
	}
}

func TestConfigTimeoutDefaultsWhenUnset(t *testing.T) {
	var cfg Config
	if cfg.timeout() <= 0 {
		t.Fatal("expected a positive default timeout")
	}
}

func TestApplyIsNoOpForBookkeepingActionsWithoutAPage(t *testing.T) {
	d := &Driver{}
	for _, typ := range []action.Type{action.NOP, action.SHELL_EVENT, action.CRASH, action.FEED} {
		t.Run(typ.String(), func(t *testing.T) {
			// These branches return before touching d.page, so a zero-value
			// Driver (no real browser) is safe to exercise here.
			if err := d.Apply(context.Background(), &operation.Operation{Act: typ}); err != nil {
				t.Fatalf("expected nil error for bookkeeping action %v, got %v", typ, err)
			}
		})
	}
}
