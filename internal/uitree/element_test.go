package uitree

import (
	"testing"

	"fastbot/internal/geom"
)

func button(text string) *Element {
	e := NewElement()
	e.Class = "android.widget.Button"
	e.Text = text
	e.Bounds = geom.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	e.Flags.Clickable = true
	return e
}

func TestHashStableAcrossCalls(t *testing.T) {
	e := button("Go")
	h1 := e.Hash(false)
	h2 := e.Hash(false)
	if h1 != h2 {
		t.Fatalf("expected stable hash, got %d then %d", h1, h2)
	}
}

func TestHashChangesOnMutation(t *testing.T) {
	e := button("Go")
	before := e.Hash(false)
	e.SetText("Stop")
	after := e.Hash(false)
	if before == after {
		t.Fatalf("expected hash to change after SetText invalidated the cache")
	}
}

func TestRecursiveHashFoldsChildren(t *testing.T) {
	root := button("root")
	child := button("child")
	root.AddChild(child)

	rootOnly := root.Hash(false)
	rootRecursive := root.Hash(true)
	if rootOnly == rootRecursive {
		t.Fatalf("recursive hash should differ from the self-only hash once a child exists")
	}

	child.SetText("changed")
	afterChildMutation := root.Hash(true)
	if afterChildMutation == rootRecursive {
		t.Fatalf("recursive hash should be invalidated when a descendant mutates")
	}
}

func TestDeleteSelfRemovesFromParent(t *testing.T) {
	root := button("root")
	child := button("child")
	root.AddChild(child)

	if !child.DeleteSelf() {
		t.Fatalf("expected DeleteSelf to succeed for a non-root node")
	}
	if len(root.Children) != 0 {
		t.Fatalf("expected root to have no children after delete, got %d", len(root.Children))
	}
	if child.Parent != nil {
		t.Fatalf("expected deleted child's parent to be cleared")
	}
}

func TestDeleteSelfOnRootIsNoop(t *testing.T) {
	root := button("root")
	if root.DeleteSelf() {
		t.Fatalf("expected DeleteSelf on a root (no parent) to report false")
	}
}

func TestRecursiveFind(t *testing.T) {
	root := button("root")
	root.Flags.Clickable = false
	a := button("a")
	b := button("b")
	b.Flags.Clickable = false
	root.AddChild(a)
	root.AddChild(b)

	clickable := root.RecursiveFind(func(e *Element) bool { return e.Flags.Clickable })
	if len(clickable) != 1 {
		t.Fatalf("expected exactly one clickable node, got %d", len(clickable))
	}
	if clickable[0] != a {
		t.Fatalf("expected to find node 'a'")
	}
}

func TestRecursiveFindFirstStopsEarly(t *testing.T) {
	root := button("root")
	a := button("a")
	b := button("b")
	root.AddChild(a)
	root.AddChild(b)

	found := root.RecursiveFindFirst(func(e *Element) bool { return e.Text == "b" })
	if found != b {
		t.Fatalf("expected to find node 'b'")
	}
}

func TestScrollTypeClassification(t *testing.T) {
	cases := []struct {
		class string
		want  ScrollType
	}{
		{"android.widget.ListView", ScrollVertical},
		{"androidx.recyclerview.widget.RecyclerView", ScrollVertical},
		{"android.widget.GridView", ScrollHorizontal},
		{"androidx.viewpager.widget.ViewPager", ScrollHorizontal},
		{"android.widget.HorizontalScrollView", ScrollHorizontal},
		{"android.widget.ScrollView", ScrollVertical},
		{"android.widget.FrameLayout", ScrollAll},
	}
	for _, c := range cases {
		e := NewElement()
		e.Class = c.class
		if got := e.ScrollType(); got != c.want {
			t.Errorf("ScrollType(%s) = %v, want %v", c.class, got, c.want)
		}
	}
}
