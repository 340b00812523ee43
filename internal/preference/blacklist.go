package preference

import (
	"fastbot/internal/geom"
	"fastbot/internal/uitree"
)

// applyBlackWidgets runs spec.md §4.5's two-phase black-widget pass over
// root, deleting matched elements and remembering their rects under
// activity for is_point_in_black_rects.
func (p *Preference) applyBlackWidgets(root *uitree.Element, activity string) {
	if root == nil {
		return
	}
	rootW, rootH := root.Bounds.Width(), root.Bounds.Height()

	p.mu.Lock()
	rules := p.blackWidgets
	p.mu.Unlock()

	var remembered []geom.Rect

	// Phase 1: xpath-only entries.
	for _, rule := range rules {
		if rule.Activity != activity || rule.XPath == nil || rule.Bounds != nil {
			continue
		}
		sel := rule.XPath.Selector()
		for _, match := range root.RecursiveFind(func(e *uitree.Element) bool { return e.MatchXPath(sel) }) {
			remembered = append(remembered, match.Bounds)
			match.DeleteSelf()
		}
	}

	// Phase 2: bounds-bearing entries. toAbsolute auto-detects whether the
	// rule's coordinates are relative to the cached root size or already
	// absolute pixels.
	for _, rule := range rules {
		if rule.Activity != activity || rule.Bounds == nil {
			continue
		}
		abs := rule.Bounds.toAbsolute(rootW, rootH)
		matches := root.RecursiveFind(func(e *uitree.Element) bool { return abs.Contains(e.Bounds.Center()) })
		for _, match := range matches {
			remembered = append(remembered, match.Bounds)
			match.DeleteSelf()
		}
	}

	if len(remembered) == 0 {
		return
	}
	p.mu.Lock()
	p.blackRects[activity] = append(p.blackRects[activity], remembered...)
	p.mu.Unlock()
}

// IsPointInBlackRects reports whether (x,y) falls inside any rect
// remembered for activity by a prior black-widget deletion (spec.md §4.5
// "exposed to the driver via is_point_in_black_rects").
func (p *Preference) IsPointInBlackRects(activity string, x, y int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pt := geom.Point{X: x, Y: y}
	for _, r := range p.blackRects[activity] {
		if r.Contains(pt) {
			return true
		}
	}
	return false
}
