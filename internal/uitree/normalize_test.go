package uitree

import "testing"

func TestNormalizeFallsBackWhenNoClickableNode(t *testing.T) {
	root := NewElement()
	root.Class = "android.widget.FrameLayout"
	child := NewElement()
	child.Class = "android.widget.TextView"
	root.AddChild(child)

	Normalize(root, NormalizeOptions{})

	if !root.Flags.Clickable || !child.Flags.Clickable {
		t.Fatalf("expected every node to become clickable when none was")
	}
}

func TestNormalizePreservesExistingClickable(t *testing.T) {
	root := NewElement()
	child := NewElement()
	child.Flags.Clickable = true
	other := NewElement()
	root.AddChild(child)
	root.AddChild(other)

	Normalize(root, NormalizeOptions{})

	if other.Flags.Clickable {
		t.Fatalf("a node with at least one clickable descendant should not force every node clickable")
	}
}

func TestNormalizeForcesRootScrollable(t *testing.T) {
	root := NewElement()
	root.Flags.Clickable = true
	Normalize(root, NormalizeOptions{})
	if !root.Flags.Scrollable {
		t.Fatalf("expected root to be forced scrollable")
	}
}

func TestNormalizeForcesEditTextInteractive(t *testing.T) {
	root := NewElement()
	root.Flags.Clickable = true
	edit := NewElement()
	edit.Class = "android.widget.EditText"
	root.AddChild(edit)

	Normalize(root, NormalizeOptions{})

	if !edit.Flags.Enabled || !edit.Flags.Clickable || !edit.Flags.LongClickable {
		t.Fatalf("expected EditText-like node to be forced enabled/clickable/long-clickable")
	}
}

func TestNormalizePropagatesClickableToChildren(t *testing.T) {
	root := NewElement()
	parent := NewElement()
	parent.Flags.Clickable = true
	child := NewElement()
	root.AddChild(parent)
	parent.AddChild(child)

	Normalize(root, NormalizeOptions{ParentClickPropagate: true})

	if !child.Flags.Clickable {
		t.Fatalf("expected clickable to propagate from parent to child")
	}
}

func TestNormalizeWithoutPropagationLeavesChildUnaffected(t *testing.T) {
	root := NewElement()
	parent := NewElement()
	parent.Flags.Clickable = true
	child := NewElement()
	other := NewElement()
	other.Flags.Clickable = true
	root.AddChild(parent)
	root.AddChild(other)
	parent.AddChild(child)

	Normalize(root, NormalizeOptions{ParentClickPropagate: false})

	if child.Flags.Clickable {
		t.Fatalf("without propagation, child should keep its own clickable state")
	}
}
