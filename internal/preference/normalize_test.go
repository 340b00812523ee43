package preference

import (
	"testing"

	"fastbot/internal/geom"
)

func TestNormalizeRewritesResourceIDViaMapping(t *testing.T) {
	root := leaf("android.widget.Button", "com.app.R.id.old", geom.Rect{})
	p := newPreference()
	p.mapping["com.app.R.id.old"] = "com.app:id/new"

	p.normalize(root)

	if root.ResourceID != "com.app:id/new" {
		t.Fatalf("expected resource-id rewritten, got %q", root.ResourceID)
	}
}

func TestNormalizeAppliesTreePruningOverridesExceptInvalidProperty(t *testing.T) {
	root := leaf("android.widget.TextView", "com.app:id/label", geom.Rect{})
	root.Text = "old text"
	p := newPreference()
	p.treePruning = []TreePruningRule{
		{
			Activity:    "MainActivity",
			XPath:       XPathSpec{ResourceID: "com.app:id/label"},
			Text:        "patched text",
			ContentDesc: InvalidProperty,
			ClassName:   InvalidProperty,
			ResourceID:  InvalidProperty,
		},
	}

	p.normalize(root)

	if root.Text != "patched text" {
		t.Fatalf("expected text overridden, got %q", root.Text)
	}
	if root.ResourceID != "com.app:id/label" {
		t.Fatalf("expected resource-id untouched by InvalidProperty sentinel, got %q", root.ResourceID)
	}
}

func TestNormalizeMarksValidTextAndClickable(t *testing.T) {
	root := leaf("android.widget.FrameLayout", "", geom.Rect{})
	child := leaf("android.widget.TextView", "", geom.Rect{})
	child.Text = "Login"
	root.AddChild(child)

	p := newPreference()
	p.validStrings.Add("Login")

	p.normalize(root)

	if child.ValidText != "Login" {
		t.Fatalf("expected valid_text set, got %q", child.ValidText)
	}
	if !child.Flags.Clickable {
		t.Fatal("expected node to become clickable since parent was not")
	}
}

func TestNormalizeLeavesClickableAloneWhenParentAlreadyClickable(t *testing.T) {
	root := leaf("android.widget.FrameLayout", "", geom.Rect{})
	root.Flags.Clickable = true
	child := leaf("android.widget.TextView", "", geom.Rect{})
	child.Text = "Login"
	root.AddChild(child)

	p := newPreference()
	p.validStrings.Add("Login")

	p.normalize(root)

	if child.Flags.Clickable {
		t.Fatal("did not expect child to be forced clickable when parent already is")
	}
}

func TestNormalizePageTextCacheTrimsOldest(t *testing.T) {
	root := leaf("android.widget.FrameLayout", "", geom.Rect{})
	p := newPreference()
	for i := 0; i < pageTextCacheCap+1; i++ {
		p.pushPageText("x")
	}
	if len(p.pageTextCache) != pageTextCacheCap+1-pageTextCacheTrim {
		t.Fatalf("expected trimmed cache length %d, got %d", pageTextCacheCap+1-pageTextCacheTrim, len(p.pageTextCache))
	}
	_ = root
}
