package uitree

// MatchOperation selects how Selector's non-empty fields combine.
type MatchOperation int

const (
	MatchAny MatchOperation = iota // any non-empty field that matches is enough
	MatchAll                       // every non-empty field must match
)

// Selector is a field-wise xpath-style matcher over an Element (spec.md
// §4.1 "match_xpath"). An empty field is never considered when deciding a
// match; it neither helps nor hurts.
type Selector struct {
	Class       string
	ResourceID  string
	Text        string
	ContentDesc string
	Package     string
	Operation   MatchOperation
}

// MatchXPath reports whether e matches sel per spec.md §4.1: with
// Operation == MatchAll, every non-empty selector field must equal the
// corresponding element field; otherwise any non-empty field matching is
// sufficient.
func (e *Element) MatchXPath(sel Selector) bool {
	fields := []struct{ want, got string }{
		{sel.Class, e.Class},
		{sel.ResourceID, e.ResourceID},
		{sel.Text, e.Text},
		{sel.ContentDesc, e.ContentDesc},
		{sel.Package, e.Package},
	}

	anySelectorField := false
	for _, f := range fields {
		if f.want == "" {
			continue
		}
		anySelectorField = true
		matched := f.want == f.got
		if sel.Operation == MatchAll {
			if !matched {
				return false
			}
		} else if matched {
			return true
		}
	}

	if sel.Operation == MatchAll {
		return anySelectorField
	}
	return false
}
