package preference

import (
	"encoding/json"
	"fmt"

	"fastbot/internal/action"
	"fastbot/internal/geom"
	"fastbot/internal/uitree"
)

// InvalidProperty is the tree-pruning sentinel: a rule field left at this
// value is never applied, distinguishing "no override" from "overwrite
// with empty string" (spec.md §4.5 normalization pass, step 3).
const InvalidProperty = "\x00#no-override#\x00"

// XPathSpec is the JSON-facing field-wise selector shared by CustomEvent,
// BlackWidgetRule and TreePruningRule (spec.md §6.4). It matches
// uitree.Selector's fields with the rewrite-file's lowercase key names.
type XPathSpec struct {
	Class       string `json:"class,omitempty"`
	ResourceID  string `json:"resourceid,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"contentdesc,omitempty"`
	Package     string `json:"package,omitempty"`
}

// Selector converts x to a uitree.Selector requiring every populated field
// to match (spec.md §4.1 match_xpath, MatchAll).
func (x XPathSpec) Selector() uitree.Selector {
	return uitree.Selector{
		Class:       x.Class,
		ResourceID:  x.ResourceID,
		Text:        x.Text,
		ContentDesc: x.ContentDesc,
		Package:     x.Package,
		Operation:   uitree.MatchAll,
	}
}

func (x XPathSpec) empty() bool {
	return x == XPathSpec{}
}

// RelRect is a black-widget bounds rule, normally expressed as coordinates
// relative to the root element's size, in [0, 1.1] (spec.md §4.5
// black-widget pass, phase 2). A rule with any coordinate outside that
// range holds absolute pixels instead; see toAbsolute.
type RelRect struct {
	Left, Top, Right, Bottom float64
}

func (r *RelRect) UnmarshalJSON(data []byte) error {
	var quad [4]float64
	if err := json.Unmarshal(data, &quad); err != nil {
		return err
	}
	r.Left, r.Top, r.Right, r.Bottom = quad[0], quad[1], quad[2], quad[3]
	return nil
}

func (r RelRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.Left, r.Top, r.Right, r.Bottom})
}

// toAbsolute converts r against rootW/rootH, the cached root element size,
// but only when r is actually relative: a rule is relative only if every
// one of its four coordinates falls in [0, 1.1] (spec.md §4.5 "relative
// [0,1.1] coordinates converted to absolute against the cached root
// size"; §9 "the current every-coord rule is correct and should be
// preserved verbatim"). A rule with any coordinate outside that range is
// already absolute pixels and is used as-is, unscaled.
func (r RelRect) toAbsolute(rootW, rootH int32) geom.Rect {
	if !r.isRelative() {
		return geom.Rect{
			Left:   int32(r.Left),
			Top:    int32(r.Top),
			Right:  int32(r.Right),
			Bottom: int32(r.Bottom),
		}
	}
	return geom.Rect{
		Left:   int32(r.Left * float64(rootW)),
		Top:    int32(r.Top * float64(rootH)),
		Right:  int32(r.Right * float64(rootW)),
		Bottom: int32(r.Bottom * float64(rootH)),
	}
}

func (r RelRect) isRelative() bool {
	return inUnitRange(r.Left) && inUnitRange(r.Top) && inUnitRange(r.Right) && inUnitRange(r.Bottom)
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1.1
}

// BlackWidgetRule is one max.widget.black entry: delete matching elements
// from the tree, either by xpath or by a relative bounds region
// (spec.md §4.5, §6.4).
type BlackWidgetRule struct {
	Activity string     `json:"activity"`
	XPath    *XPathSpec `json:"xpath,omitempty"`
	Bounds   *RelRect   `json:"bounds,omitempty"`
}

// TreePruningRule is one max.tree.pruning entry (spec.md §4.5 step 3,
// §6.4). A field left unset in the source JSON decodes to InvalidProperty
// so it is never applied, per the three-state (override / blank-out /
// leave-alone) semantics the spec's sentinel implies.
type TreePruningRule struct {
	Activity    string
	XPath       XPathSpec
	ResourceID  string
	Text        string
	ContentDesc string
	ClassName   string
}

type treePruningWire struct {
	Activity    string    `json:"activity"`
	XPath       XPathSpec `json:"xpath"`
	ResourceID  *string   `json:"resourceid"`
	Text        *string   `json:"text"`
	ContentDesc *string   `json:"contentdesc"`
	ClassName   *string   `json:"classname"`
}

func (r *TreePruningRule) UnmarshalJSON(data []byte) error {
	var w treePruningWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Activity = w.Activity
	r.XPath = w.XPath
	r.ResourceID = derefOr(w.ResourceID, InvalidProperty)
	r.Text = derefOr(w.Text, InvalidProperty)
	r.ContentDesc = derefOr(w.ContentDesc, InvalidProperty)
	r.ClassName = derefOr(w.ClassName, InvalidProperty)
	return nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// CustomAction is one element of a CustomEvent's actions list: a gesture
// type plus either an explicit absolute target rect or an xpath to
// resolve against the current tree when the action is drained (spec.md
// §4.5 "xpath-only custom actions have their bounds patched by finding
// the first xpath match in the current tree").
type CustomAction struct {
	Type   action.Type `json:"type"`
	XPath  *XPathSpec  `json:"xpath,omitempty"`
	Bounds *geom.Rect  `json:"bounds,omitempty"`
}

// CustomEvent is one max.xpath.actions entry (spec.md §4.5, §6.4):
// "when the current action queue is empty, iterate events matching the
// activity; if times > 0 and a fresh uniform draw < prob, enqueue all of
// the event's actions and decrement times."
type CustomEvent struct {
	Activity string         `json:"activity"`
	Prob     float64        `json:"prob"`
	Times    int            `json:"times"`
	Actions  []CustomAction `json:"actions"`
}

// ConfigError reports a single rewrite-source file that failed to parse;
// Load aggregates these with go.uber.org/multierr rather than failing the
// whole Preference on one bad file (spec.md §7 ConfigError: "logged and
// skipped without losing the report").
type ConfigError struct {
	Source string
	Err    error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("preference: %s: %v", e.Source, e.Err)
}

func (e ConfigError) Unwrap() error { return e.Err }
