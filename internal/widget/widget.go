// Package widget projects uitree.Element nodes into minimal actionable
// records and computes their bit-exact composite hash (spec.md §3, §4.1).
package widget

import (
	"strings"
	"unicode/utf8"

	"fastbot/internal/action"
	"fastbot/internal/geom"
	"fastbot/internal/uitree"
	"fastbot/internal/xhash"
)

// Component masks select which hash components feed hash_with_mask
// (spec.md §3 "dynamic abstraction").
const (
	MaskClass uint8 = 1 << iota
	MaskResourceID
	MaskOperateMask
	MaskScrollType
	MaskText
	MaskContentDesc
	MaskIndex
)

// FullMask is the default mask used by Hash(): class/resource-id/operate-
// mask/scroll-type are always present; text/content-desc/index are mixed in
// per the Options toggles at construction time, recorded in includedMask.
const FullMask = MaskClass | MaskResourceID | MaskOperateMask | MaskScrollType | MaskText | MaskContentDesc | MaskIndex

// Options controls which optional components Widget mixes into its hash
// (spec.md §3 "Widget-hash composition").
type Options struct {
	IncludeText        bool
	TextLengthLimit    int
	IncludeContentDesc bool
	IncludeIndex       bool
}

// Widget is the actionable projection of an Element (spec.md §3).
type Widget struct {
	Class       string
	ResourceID  string
	Text        string
	ContentDesc string
	Index       int
	Bounds      geom.Rect
	OperateMask uint32
	ScrollType  uitree.ScrollType
	Actions     []action.Type

	Parent *Widget

	includedMask uint8
	hash         uint64
}

// operateMask packs the Element flags this Widget derives actions from into
// a stable numeric component for hashing (h_op in spec.md §3).
func operateMask(e *uitree.Element) uint32 {
	var m uint32
	if e.Flags.Clickable || e.Flags.Checkable {
		m |= 1
	}
	if e.Flags.LongClickable {
		m |= 2
	}
	if e.Flags.Scrollable {
		m |= 4
	}
	if e.Flags.Enabled {
		m |= 8
	}
	return m
}

// derivedActions implements the closed rule table from spec.md §4.1.
func derivedActions(e *uitree.Element) []action.Type {
	var out []action.Type
	if e.Flags.Clickable || e.Flags.Checkable {
		out = append(out, action.CLICK)
	}
	if e.Flags.LongClickable {
		out = append(out, action.LONG_CLICK)
	}
	if e.Flags.Scrollable {
		switch e.ScrollType() {
		case uitree.ScrollVertical:
			out = append(out, action.SCROLL_TOP_DOWN, action.SCROLL_BOTTOM_UP)
		case uitree.ScrollHorizontal:
			out = append(out, action.SCROLL_LEFT_RIGHT, action.SCROLL_RIGHT_LEFT)
		case uitree.ScrollAll:
			out = append(out, action.SCROLL_TOP_DOWN, action.SCROLL_BOTTOM_UP, action.SCROLL_LEFT_RIGHT, action.SCROLL_RIGHT_LEFT)
		}
	}
	return out
}

// HasActions reports whether e would yield at least one derived action,
// the condition State uses to decide whether a node becomes a Widget
// (spec.md §4.2 step 1).
func HasActions(e *uitree.Element) bool {
	return len(derivedActions(e)) > 0
}

// New builds a Widget from e, with parent being the nearest actionable
// ancestor's Widget (spec.md §4.2 step 1), or nil at the root.
func New(e *uitree.Element, parent *Widget, opts Options) *Widget {
	w := &Widget{
		Class:       e.Class,
		ResourceID:  e.ResourceID,
		ContentDesc: e.ContentDesc,
		Index:       e.Index,
		Bounds:      e.Bounds,
		OperateMask: operateMask(e),
		ScrollType:  e.ScrollType(),
		Actions:     derivedActions(e),
		Parent:      parent,
	}
	stripped := stripDigitsAndBlanks(e.Text)
	w.Text = truncateText(stripped, opts)
	w.includedMask = MaskClass | MaskResourceID | MaskOperateMask | MaskScrollType
	if opts.IncludeText && withinTextLimit(stripped, opts.TextLengthLimit) {
		w.includedMask |= MaskText
	}
	if opts.IncludeContentDesc {
		w.includedMask |= MaskContentDesc
	}
	if opts.IncludeIndex {
		w.includedMask |= MaskIndex
	}
	return w
}

// stripDigitsAndBlanks removes digits and whitespace from text, the
// normalization pass spec.md §4.1 runs before any length check or
// truncation is applied (spec.md §9; mirrors the original stripping text
// before computing overMaxLen, not after).
func stripDigitsAndBlanks(text string) string {
	var sb strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// truncateText cuts stripped to the configured byte budget, pushing a cut
// that would bisect a multi-byte rune forward to the next rune boundary
// (spec.md §4.1).
func truncateText(stripped string, opts Options) string {
	if !opts.IncludeText || opts.TextLengthLimit <= 0 || len(stripped) <= opts.TextLengthLimit {
		return stripped
	}
	cut := opts.TextLengthLimit
	for cut < len(stripped) && !utf8.RuneStart(stripped[cut]) {
		cut++
	}
	return stripped[:cut]
}

// withinTextLimit reports whether stripped (the already digit/whitespace-
// stripped text, never the raw pre-strip text) is within limit, the check
// that gates MaskText inclusion (spec.md §4.1; the original computes
// overMaxLen on the stripped string, not the raw one).
func withinTextLimit(stripped string, limit int) bool {
	if limit <= 0 {
		return true
	}
	return len(stripped) <= limit
}

// Hash returns the composite widget hash, recomposed from whichever
// components includedMask selects (spec.md §3 "hash_with_mask"). The
// result is cached after first computation with the widget's own mask.
func (w *Widget) Hash() uint64 {
	if w.hash != 0 {
		return w.hash
	}
	w.hash = w.HashWithMask(w.includedMask)
	return w.hash
}

// HashWithMask recomposes the bit-exact base composite from spec.md §3 and
// conditionally mixes in text/content-desc/index per mask, enabling the
// dynamic-abstraction use case of selecting a coarser hash at runtime.
func (w *Widget) HashWithMask(mask uint8) uint64 {
	hClass := xhash.String(w.Class)
	hRid := xhash.String(w.ResourceID)
	hOp := uint64(w.OperateMask)
	hScroll := uint64(w.ScrollType)

	if mask&MaskClass == 0 {
		hClass = 0
	}
	if mask&MaskResourceID == 0 {
		hRid = 0
	}
	if mask&MaskOperateMask == 0 {
		hOp = 0
	}
	if mask&MaskScrollType == 0 {
		hScroll = 0
	}

	left := (hClass ^ (hRid << 4)) >> 2
	right := ((127 * hOp) << 1) ^ ((256 * hScroll) << 3)
	base := left ^ (right >> 1)

	h := base
	if mask&MaskText != 0 {
		h = xhash.Combine(h, xhash.String(w.Text))
	}
	if mask&MaskContentDesc != 0 {
		h = xhash.Combine(h, xhash.String(w.ContentDesc))
	}
	if mask&MaskIndex != 0 {
		h = xhash.Combine(h, xhash.Int(w.Index))
	}
	return h
}

// FoldChildText appends descendant text to the widget's own text before
// hashing, for the rich-widget-hash abstraction mode (config's
// RichWidgetHash toggle): State folds every descendant's normalized text
// into its nearest actionable-ancestor Widget before State construction
// calls Hash(), so a container widget's identity reflects its content.
func (w *Widget) FoldChildText(childText string) {
	if childText == "" {
		return
	}
	w.Text += childText
	w.hash = 0
}
