// Package uitree parses view-hierarchy snapshots (spec.md §6.1) into a
// tree of Element nodes and applies the post-parse normalization pass
// from spec.md §4.1 before widget extraction.
package uitree

import (
	"strings"
	"sync"

	"fastbot/internal/geom"
	"fastbot/internal/xhash"
)

// ScrollType classifies a scrollable element's gesture directions
// (spec.md §4.1).
type ScrollType int

const (
	ScrollNone ScrollType = iota
	ScrollVertical
	ScrollHorizontal
	ScrollAll
)

// Flags holds the boolean attributes UI-Automator reports per node.
type Flags struct {
	Checkable     bool
	Checked       bool
	Clickable     bool
	Enabled       bool
	Focusable     bool
	Focused       bool
	Scrollable    bool
	LongClickable bool
	Password      bool
	Selected      bool
}

// Element is a parsed UI node: bounds, class, resource-id, text,
// content-desc, flags, ordered children, and a weak parent back-reference
// (spec.md §2, §4.1).
type Element struct {
	Bounds      geom.Rect
	Index       int
	Class       string
	ResourceID  string
	Text        string
	ContentDesc string
	Package     string
	Flags       Flags

	// ValidText is set by Preference's normalization pass (spec.md §4.5)
	// when the node's text/content-desc matches the valid-texts dictionary.
	ValidText string

	Parent   *Element
	Children []*Element

	mu             sync.Mutex
	scrollType     ScrollType
	scrollTypeSet  bool
	hashSelf       *uint64
	hashRecursive  *uint64
}

// NewElement constructs a bare element; callers typically build the tree
// via DecodeXML or DecodeBinary instead.
func NewElement() *Element {
	return &Element{Flags: Flags{}}
}

// AddChild appends c as the last child of e and sets its parent, invalidating
// hash caches along the ancestor chain.
func (e *Element) AddChild(c *Element) {
	c.Parent = e
	e.Children = append(e.Children, c)
	e.invalidateHash()
}

// DeleteSelf removes e from its parent's children. Root deletion is a
// logged no-op (spec.md §4.1); the caller's logger, not this package,
// performs the logging so uitree stays dependency-free of internal/logging.
func (e *Element) DeleteSelf() bool {
	if e.Parent == nil {
		return false
	}
	siblings := e.Parent.Children
	for i, c := range siblings {
		if c == e {
			e.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			e.Parent.invalidateHash()
			e.Parent = nil
			return true
		}
	}
	return false
}

// invalidateHash clears this node's cached hashes and walks up the parent
// chain doing the same, since every ancestor's recursive hash depends on
// this node's contribution (spec.md §9, cache invalidation centralization).
func (e *Element) invalidateHash() {
	for n := e; n != nil; n = n.Parent {
		n.mu.Lock()
		n.hashSelf = nil
		n.hashRecursive = nil
		n.mu.Unlock()
	}
}

// --- mutating setters: each invalidates the hash cache (spec.md §9) ---

func (e *Element) SetResourceID(id string) {
	e.ResourceID = id
	e.invalidateHash()
}

func (e *Element) SetClass(class string) {
	e.Class = class
	e.scrollTypeSet = false
	e.invalidateHash()
}

func (e *Element) SetText(text string) {
	e.Text = text
	e.invalidateHash()
}

func (e *Element) SetContentDesc(desc string) {
	e.ContentDesc = desc
	e.invalidateHash()
}

func (e *Element) SetClickable(v bool) {
	e.Flags.Clickable = v
	e.invalidateHash()
}

func (e *Element) SetLongClickable(v bool) {
	e.Flags.LongClickable = v
	e.invalidateHash()
}

func (e *Element) SetEnabled(v bool) {
	e.Flags.Enabled = v
	e.invalidateHash()
}

func (e *Element) SetScrollable(v bool) {
	e.Flags.Scrollable = v
	e.invalidateHash()
}

// ScrollType returns (and caches) the scroll type derived from Class via
// the closed lookup in spec.md §4.1.
func (e *Element) ScrollType() ScrollType {
	if e.scrollTypeSet {
		return e.scrollType
	}
	e.scrollType = classifyScrollType(e.Class)
	e.scrollTypeSet = true
	return e.scrollType
}

func classifyScrollType(class string) ScrollType {
	lower := strings.ToLower(class)
	switch {
	case strings.Contains(lower, "listview"),
		strings.Contains(lower, "recyclerview"),
		strings.Contains(lower, "scrollview") && !strings.Contains(lower, "horizontal"):
		return ScrollVertical
	case strings.Contains(lower, "gridview"),
		strings.Contains(lower, "viewpager"),
		strings.Contains(lower, "horizontalscrollview"):
		return ScrollHorizontal
	case strings.Contains(lower, "scrollview"):
		return ScrollAll
	default:
		return ScrollAll
	}
}

// Hash returns the structural hash of this node. If recursive is true, the
// result folds in every descendant's hash and is cached until the subtree
// mutates (spec.md §4.1 "hash(recursive) — cached when recursive").
func (e *Element) Hash(recursive bool) uint64 {
	e.mu.Lock()
	if recursive && e.hashRecursive != nil {
		h := *e.hashRecursive
		e.mu.Unlock()
		return h
	}
	if !recursive && e.hashSelf != nil {
		h := *e.hashSelf
		e.mu.Unlock()
		return h
	}
	e.mu.Unlock()

	self := e.selfHash()
	if !recursive {
		e.mu.Lock()
		e.hashSelf = &self
		e.mu.Unlock()
		return self
	}

	h := self
	for _, c := range e.Children {
		h = xhash.CombineOrdered(h, c.Hash(true))
	}
	e.mu.Lock()
	e.hashRecursive = &h
	e.mu.Unlock()
	return h
}

func (e *Element) selfHash() uint64 {
	h := xhash.String(e.Class)
	h = xhash.Combine(h, xhash.String(e.ResourceID))
	h = xhash.Combine(h, xhash.String(e.Text))
	h = xhash.Combine(h, xhash.String(e.ContentDesc))
	h = xhash.Combine(h, xhash.Int(int(e.Bounds.Left)))
	h = xhash.Combine(h, xhash.Int(int(e.Bounds.Top)))
	h = xhash.Combine(h, xhash.Int(int(e.Bounds.Right)))
	h = xhash.Combine(h, xhash.Int(int(e.Bounds.Bottom)))
	h = xhash.Combine(h, xhash.Int(e.Index))
	h = xhash.Combine(h, flagsHash(e.Flags))
	return h
}

func flagsHash(f Flags) uint64 {
	h := xhash.Bool(f.Checkable)
	h = xhash.Combine(h, xhash.Bool(f.Checked))
	h = xhash.Combine(h, xhash.Bool(f.Clickable))
	h = xhash.Combine(h, xhash.Bool(f.Enabled))
	h = xhash.Combine(h, xhash.Bool(f.Focusable))
	h = xhash.Combine(h, xhash.Bool(f.Focused))
	h = xhash.Combine(h, xhash.Bool(f.Scrollable))
	h = xhash.Combine(h, xhash.Bool(f.LongClickable))
	h = xhash.Combine(h, xhash.Bool(f.Password))
	h = xhash.Combine(h, xhash.Bool(f.Selected))
	return h
}

// Predicate reports whether e matches some criterion, used by
// RecursiveFind / RecursiveFindFirst.
type Predicate func(e *Element) bool

// RecursiveFind performs a pre-order traversal collecting every node for
// which pred returns true.
func (e *Element) RecursiveFind(pred Predicate) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(n *Element) {
		if pred(n) {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(e)
	return out
}

// RecursiveFindFirst performs a pre-order traversal, stopping at the first
// match.
func (e *Element) RecursiveFindFirst(pred Predicate) *Element {
	if pred(e) {
		return e
	}
	for _, c := range e.Children {
		if found := c.RecursiveFindFirst(pred); found != nil {
			return found
		}
	}
	return nil
}
