package uitree

import "strings"

// NormalizeOptions toggles the optional parts of the post-parse
// normalization pass (spec.md §4.1).
type NormalizeOptions struct {
	ParentClickPropagate bool
}

// Normalize applies the spec.md §4.1 post-parse pass to the tree rooted at
// root, in place:
//
//  1. If no node anywhere declared clickable, every node becomes clickable
//     (fallback so the app remains exercisable).
//  2. The root is forced scrollable.
//  3. EditText-like classes have enabled/clickable/long-clickable forced true.
//  4. If ParentClickPropagate is set, a clickable/long-clickable parent's
//     flag is inherited by its children.
func Normalize(root *Element, opts NormalizeOptions) {
	if root == nil {
		return
	}

	anyClickable := false
	root.walkAll(func(e *Element) {
		if e.Flags.Clickable {
			anyClickable = true
		}
	})
	if !anyClickable {
		root.walkAll(func(e *Element) { e.Flags.Clickable = true })
	}

	root.Flags.Scrollable = true

	root.walkAll(func(e *Element) {
		if isEditTextClass(e.Class) {
			e.Flags.Enabled = true
			e.Flags.Clickable = true
			e.Flags.LongClickable = true
		}
	})

	if opts.ParentClickPropagate {
		propagateClickable(root, false, false)
	}

	root.invalidateHash()
}

func propagateClickable(e *Element, parentClickable, parentLongClickable bool) {
	if parentClickable {
		e.Flags.Clickable = true
	}
	if parentLongClickable {
		e.Flags.LongClickable = true
	}
	for _, c := range e.Children {
		propagateClickable(c, e.Flags.Clickable, e.Flags.LongClickable)
	}
}

func isEditTextClass(class string) bool {
	return strings.Contains(class, "EditText")
}

// walkAll visits every node in the subtree rooted at e, pre-order.
func (e *Element) walkAll(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.walkAll(fn)
	}
}
