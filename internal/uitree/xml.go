package uitree

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fastbot/internal/geom"
)

// ErrParse is returned when a snapshot cannot be decoded at all (spec.md
// §7 ParseError).
var ErrParse = fmt.Errorf("uitree: malformed snapshot")

// rawNode mirrors the UI-Automator-style XML wire shape. encoding/xml is
// used here as the opaque parser library spec.md §1 treats XML handling
// as — no XML/xpath library appears anywhere in the example corpus (see
// DESIGN.md), so this is the one ambient concern left on the standard
// library.
type rawNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []rawNode  `xml:"node"`
}

func (n *rawNode) attr(names ...string) (string, bool) {
	for _, a := range n.Attrs {
		for _, name := range names {
			if a.Name.Local == name {
				return a.Value, true
			}
		}
	}
	return "", false
}

func (n *rawNode) attrBool(names ...string) bool {
	v, ok := n.attr(names...)
	if !ok {
		return false
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func (n *rawNode) attrInt(names ...string) int {
	v, ok := n.attr(names...)
	if !ok {
		return 0
	}
	i, _ := strconv.Atoi(v)
	return i
}

// DecodeXML parses a UI-Automator-style "<hierarchy><node .../></hierarchy>"
// document into an Element tree. It accepts both full attribute names and
// the short-name alias set from spec.md §6.1.
func DecodeXML(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	var root rawNode
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var build func(rawNode) *Element
	build = func(n rawNode) *Element {
		e := NewElement()
		if bnd, ok := n.attr("bounds", "bnd"); ok {
			e.Bounds = parseBounds(bnd)
		}
		e.Index = n.attrInt("index", "idx")
		e.Class, _ = n.attr("class")
		e.ResourceID, _ = n.attr("resource-id", "rid")
		e.Text, _ = n.attr("text", "t")
		e.ContentDesc, _ = n.attr("content-desc", "cd")
		e.Package, _ = n.attr("package", "pkg")
		e.Flags = Flags{
			Checkable:     n.attrBool("checkable", "ck"),
			Checked:       n.attrBool("checked", "cked"),
			Clickable:     n.attrBool("clickable", "clk"),
			Enabled:       n.attrBool("enabled", "en"),
			Focusable:     n.attrBool("focusable", "foc"),
			Focused:       n.attrBool("focused", "fcd"),
			Scrollable:    n.attrBool("scrollable", "scl"),
			LongClickable: n.attrBool("long-clickable", "lclk"),
			Password:      n.attrBool("password", "pwd"),
			Selected:      n.attrBool("selected", "sel"),
		}
		for _, child := range n.Nodes {
			e.AddChild(build(child))
		}
		return e
	}

	if root.XMLName.Local == "hierarchy" {
		if len(root.Nodes) == 0 {
			return nil, fmt.Errorf("%w: hierarchy has no root node", ErrParse)
		}
		return build(root.Nodes[0]), nil
	}
	return build(root), nil
}

// parseBounds parses the grammar "[<l>,<t>][<r>,<b>]" with optional signs
// and decimal digits (spec.md §6.1). Unparsable input yields a zero Rect
// rather than an error — callers treat an empty-bounds tree as
// spec.md §7's EmptyTreeError, not a hard parse failure.
func parseBounds(s string) geom.Rect {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, "][")
	if len(parts) != 2 {
		return geom.Rect{}
	}
	l, t, ok1 := splitCoord(parts[0])
	r, b, ok2 := splitCoord(parts[1])
	if !ok1 || !ok2 {
		return geom.Rect{}
	}
	return geom.Rect{Left: l, Top: t, Right: r, Bottom: b}
}

func splitCoord(s string) (int32, int32, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	b, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return int32(a), int32(b), true
}

// EncodeXML renders e back to the full-attribute-name XML form, the
// counterpart DecodeXML(EncodeXML(e)) round-trips through (spec.md §8).
func EncodeXML(e *Element) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("<hierarchy>")
	writeXML(&sb, e)
	sb.WriteString("</hierarchy>")
	return []byte(sb.String()), nil
}

func writeXML(sb *strings.Builder, e *Element) {
	fmt.Fprintf(sb, `<node index="%d" class=%s resource-id=%s text=%s content-desc=%s package=%s bounds=%s `,
		e.Index, quote(e.Class), quote(e.ResourceID), quote(e.Text), quote(e.ContentDesc), quote(e.Package), quote(boundsString(e.Bounds)))
	fmt.Fprintf(sb, `checkable="%v" checked="%v" clickable="%v" enabled="%v" focusable="%v" focused="%v" scrollable="%v" long-clickable="%v" password="%v" selected="%v"`,
		e.Flags.Checkable, e.Flags.Checked, e.Flags.Clickable, e.Flags.Enabled, e.Flags.Focusable, e.Flags.Focused, e.Flags.Scrollable, e.Flags.LongClickable, e.Flags.Password, e.Flags.Selected)
	if len(e.Children) == 0 {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	for _, c := range e.Children {
		writeXML(sb, c)
	}
	sb.WriteString("</node>")
}

func boundsString(r geom.Rect) string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return `"` + s + `"`
}
