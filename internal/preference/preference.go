// Package preference is the tree rewriter: a value built by Load and
// handed to Model that deletes black-listed widgets, normalizes resource-ids/text, injects
// scripted custom actions, and fills in empty input text (spec.md §4.5).
package preference

import (
	"math/rand"
	"sync"

	"bitbucket.org/creachadair/stringset"

	"fastbot/internal/geom"
	"fastbot/internal/operation"
	"fastbot/internal/uitree"
)

// Preference holds every loaded rewrite source plus the mutable state the
// rewrite passes accumulate across steps (black rects, page-text cache,
// custom-action queue). Each Load call builds a new Preference; its config
// fields are not modified after Load returns.
type Preference struct {
	mu sync.Mutex

	mapping      map[string]string
	blackWidgets []BlackWidgetRule
	treePruning  []TreePruningRule
	validStrings stringset.Set
	events       []CustomEvent

	presetStrings []string
	fuzzStrings   []string

	randomPickFromStringList bool
	doInputTextFuzzing       bool
	listenMode               bool

	blackRects    map[string][]geom.Rect
	pageTextCache []string
	queue         []CustomAction
}

func newPreference() *Preference {
	return &Preference{
		mapping:      make(map[string]string),
		validStrings: stringset.New(),
		blackRects:   make(map[string][]geom.Rect),
	}
}

// ListenMode reports whether max.config's listen-mode flag is set
// (spec.md §6.4). Model.Step does not read it; the policy runs whatever
// its value.
func (p *Preference) ListenMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listenMode
}

// Rewrite runs the full spec.md §4.5 per-step pass over root in place:
// black-widget deletion, then normalization.
func (p *Preference) Rewrite(root *uitree.Element, activity string) {
	if root == nil {
		return
	}
	p.applyBlackWidgets(root, activity)
	p.normalize(root)
}

// PatchOperate implements spec.md §4.5's patch_operate: fills in input
// text for an editable target whose text is empty, preferring preset
// strings, then a 50% chance of the fuzzing corpus, then a 35% chance of
// the page-text cache.
func (p *Preference) PatchOperate(op *operation.Operation) {
	if op == nil || !op.Editable || op.Text != "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.randomPickFromStringList && len(p.presetStrings) > 0 {
		op.Text = p.presetStrings[rand.Intn(len(p.presetStrings))]
		return
	}
	if p.doInputTextFuzzing && len(p.fuzzStrings) > 0 && rand.Float64() < 0.5 {
		op.Text = p.fuzzStrings[rand.Intn(len(p.fuzzStrings))]
		return
	}
	if len(p.pageTextCache) > 0 && rand.Float64() < 0.35 {
		op.Text = p.pageTextCache[rand.Intn(len(p.pageTextCache))]
	}
}
