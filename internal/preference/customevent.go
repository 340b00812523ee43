package preference

import (
	"math/rand"

	"fastbot/internal/uitree"
)

// tryInjectLocked iterates events matching activity when the queue is
// empty, enqueuing the first one whose times/prob draw succeeds (spec.md
// §4.5 "iterate events matching the activity; if times > 0 and a fresh
// uniform draw < prob, enqueue all of the event's actions and decrement
// times"). Caller must hold p.mu.
func (p *Preference) tryInjectLocked(activity string) {
	if len(p.queue) != 0 {
		return
	}
	for i := range p.events {
		ev := &p.events[i]
		if ev.Activity != activity || ev.Times <= 0 {
			continue
		}
		if rand.Float64() < ev.Prob {
			p.queue = append(p.queue, ev.Actions...)
			ev.Times--
			return
		}
	}
}

// NextCustomAction implements the Model-facing half of spec.md §4.5's
// action injection: try to inject fresh actions for activity if the queue
// is empty, then dequeue and return the front action with its bounds
// resolved against root when it was only given an xpath.
func (p *Preference) NextCustomAction(root *uitree.Element, activity string) (*CustomAction, bool) {
	p.mu.Lock()
	p.tryInjectLocked(activity)
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return nil, false
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	p.mu.Unlock()

	if next.Bounds == nil && next.XPath != nil && root != nil {
		sel := next.XPath.Selector()
		if match := root.RecursiveFindFirst(func(e *uitree.Element) bool { return e.MatchXPath(sel) }); match != nil {
			bounds := match.Bounds
			next.Bounds = &bounds
		}
	}
	return &next, true
}
