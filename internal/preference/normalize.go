package preference

import (
	"fastbot/internal/uitree"
)

// pageTextCacheCap and pageTextCacheTrim implement spec.md §4.5's bounded
// page-text cache: "drop oldest 20 when above 300".
const (
	pageTextCacheCap  = 300
	pageTextCacheTrim = 20
)

// normalize runs spec.md §4.5's single recursive normalization pass:
// resource-id de-obfuscation, page-text caching, tree-pruning overrides,
// and valid-text marking.
func (p *Preference) normalize(root *uitree.Element) {
	if root == nil {
		return
	}

	p.mu.Lock()
	mapping := p.mapping
	pruning := p.treePruning
	validStrings := p.validStrings
	p.mu.Unlock()

	var walk func(e *uitree.Element)
	walk = func(e *uitree.Element) {
		if newID, ok := mapping[e.ResourceID]; ok {
			e.SetResourceID(newID)
		}

		p.pushPageText(e.Text)

		for _, rule := range pruning {
			if !ruleApplies(rule, e) {
				continue
			}
			applyPruningOverrides(rule, e)
		}

		if validStrings != nil {
			if v, ok := matchValidString(validStrings, e); ok {
				e.ValidText = v
				if e.Parent == nil || !e.Parent.Flags.Clickable {
					e.SetClickable(true)
				}
			}
		}

		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(root)
}

func ruleApplies(rule TreePruningRule, e *uitree.Element) bool {
	return e.MatchXPath(rule.XPath.Selector())
}

func applyPruningOverrides(rule TreePruningRule, e *uitree.Element) {
	if rule.ResourceID != InvalidProperty {
		e.SetResourceID(rule.ResourceID)
	}
	if rule.Text != InvalidProperty {
		e.SetText(rule.Text)
	}
	if rule.ContentDesc != InvalidProperty {
		e.SetContentDesc(rule.ContentDesc)
	}
	if rule.ClassName != InvalidProperty {
		e.SetClass(rule.ClassName)
	}
}

func matchValidString(set interface{ Contains(string) bool }, e *uitree.Element) (string, bool) {
	if e.Text != "" && set.Contains(e.Text) {
		return e.Text, true
	}
	if e.ContentDesc != "" && set.Contains(e.ContentDesc) {
		return e.ContentDesc, true
	}
	return "", false
}

// pushPageText appends text to the page-text cache if non-empty, trimming
// the oldest pageTextCacheTrim entries once the cache exceeds its cap
// (spec.md §4.5).
func (p *Preference) pushPageText(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageTextCache = append(p.pageTextCache, text)
	if len(p.pageTextCache) > pageTextCacheCap {
		p.pageTextCache = append([]string{}, p.pageTextCache[pageTextCacheTrim:]...)
	}
}
