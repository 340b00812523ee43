package preference

import (
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/geom"
	"fastbot/internal/operation"
)

func TestRewriteDeletesBlackWidgetsThenNormalizes(t *testing.T) {
	root := leaf("android.widget.FrameLayout", "", geom.Rect{Left: 0, Top: 0, Right: 1000, Bottom: 1000})
	ad := leaf("android.widget.Button", "com.app:id/ad_close", geom.Rect{Left: 10, Top: 10, Right: 50, Bottom: 50})
	label := leaf("android.widget.TextView", "com.app.R.id.old", geom.Rect{})
	root.AddChild(ad)
	root.AddChild(label)

	p := newPreference()
	p.blackWidgets = []BlackWidgetRule{{Activity: "MainActivity", XPath: &XPathSpec{ResourceID: "com.app:id/ad_close"}}}
	p.mapping["com.app.R.id.old"] = "com.app:id/new"

	p.Rewrite(root, "MainActivity")

	if len(root.Children) != 1 {
		t.Fatalf("expected ad widget deleted, got %d children", len(root.Children))
	}
	if root.Children[0].ResourceID != "com.app:id/new" {
		t.Fatalf("expected normalization to run after deletion, got %q", root.Children[0].ResourceID)
	}
}

func TestPatchOperatePrefersPresetStrings(t *testing.T) {
	p := newPreference()
	p.randomPickFromStringList = true
	p.presetStrings = []string{"preset"}
	p.doInputTextFuzzing = true
	p.fuzzStrings = []string{"fuzz"}
	p.pageTextCache = []string{"cached"}

	op := &operation.Operation{Act: action.CLICK, Editable: true}
	p.PatchOperate(op)

	if op.Text != "preset" {
		t.Fatalf("expected preset string to win, got %q", op.Text)
	}
}

func TestPatchOperateSkipsNonEditableOrAlreadyFilled(t *testing.T) {
	p := newPreference()
	p.randomPickFromStringList = true
	p.presetStrings = []string{"preset"}

	nonEditable := &operation.Operation{Act: action.CLICK, Editable: false}
	p.PatchOperate(nonEditable)
	if nonEditable.Text != "" {
		t.Fatal("did not expect text patched for a non-editable operation")
	}

	alreadyFilled := &operation.Operation{Act: action.CLICK, Editable: true, Text: "existing"}
	p.PatchOperate(alreadyFilled)
	if alreadyFilled.Text != "existing" {
		t.Fatal("did not expect existing text to be overwritten")
	}
}

func TestListenModeReflectsLoadedConfig(t *testing.T) {
	p := newPreference()
	p.listenMode = true
	if !p.ListenMode() {
		t.Fatal("expected ListenMode to report true")
	}
}
