// Package agent implements the exploration policy: the AbstractAgent base
// (state/action windows, priority adjustment, null-action fallback) and
// the ReuseAgent / DoubleSarsaAgent tagged variant built on top of it
// (spec.md §4.4, §9 "tagged variant rather than a class hierarchy").
package agent

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"bitbucket.org/creachadair/stringset"

	"fastbot/internal/action"
	"fastbot/internal/config"
	"fastbot/internal/graph"
	"fastbot/internal/logging"
	"fastbot/internal/state"
)

// Agent is the single concrete type backing both AgentKind variants; public
// methods dispatch on cfg.Kind where the strategies differ (spec.md §9).
type Agent struct {
	DeviceID string

	cfg   config.AgentConfig
	model *ReuseModel

	mu sync.Mutex

	lastState, currentState, newState       *state.State
	lastAction, currentAction, newAction     *action.Action
	currentStateBlockTimes                  int

	rewards         []float64 // ring buffer, capacity cfg.StepWindow
	actionHistory   []*action.Action
	activityHistory []string // owning activity name for each actionHistory entry, for ActivityHash re-keying

	q1, q2 map[uint64]float64

	savePath     string
	persistQuit  context.CancelFunc
	persistDone  chan struct{}
}

// New constructs an Agent for deviceID using cfg and model (model may be a
// freshly loaded one or NewReuseModel() for a cold start).
func New(deviceID string, cfg config.AgentConfig, model *ReuseModel) *Agent {
	return &Agent{
		DeviceID: deviceID,
		cfg:      cfg,
		model:    model,
		q1:       make(map[uint64]float64),
		q2:       make(map[uint64]float64),
	}
}

// StartPersistence launches the background save loop (spec.md §4.4
// "Background persistence", §5 "exactly one background thread, per
// agent"). The goroutine holds no reference back to anything but this
// Agent's save path and model; it exits as soon as ctx (derived here) is
// canceled via Stop.
func (a *Agent) StartPersistence(path string, interval time.Duration) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("agent: prepare reuse-model directory: %w", err)
	}

	a.mu.Lock()
	a.savePath = path
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	a.persistQuit = cancel
	a.persistDone = make(chan struct{})

	go func() {
		defer close(a.persistDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.mu.Lock()
				path := a.savePath
				a.mu.Unlock()
				if path == "" {
					continue
				}
				// PersistenceError (spec.md §7): logged here; a save
				// failure never touches in-memory state.
				if err := a.model.Save(path); err != nil {
					logging.Get(logging.CategoryPersistence).Warn("save reuse model %s: %v", path, err)
				}
			}
		}
	}()
	return nil
}

// Stop cancels the persistence goroutine, if running, and waits for it to
// exit.
func (a *Agent) Stop() {
	if a.persistQuit == nil {
		return
	}
	a.persistQuit()
	<-a.persistDone
}

// OnAddNode implements the AbstractAgent base's Graph listener hook: record
// the freshly canonicalized state as "new" and run block detection
// (spec.md §4.4).
func (a *Agent) OnAddNode(s *state.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.newState = s
	if a.cfg.BlockDetectionEnabled && a.currentState != nil && s.Hash == a.currentState.Hash {
		a.currentStateBlockTimes++
	} else {
		a.currentStateBlockTimes = 0
	}
}

// BlockTimes returns the current consecutive same-state count Model uses
// to decide on a forced RESTART (spec.md §4.6 step 5).
func (a *Agent) BlockTimes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentStateBlockTimes
}

// priorityByActionType is the per-type base priority every adjustment
// starts from (spec.md §4.4 "base = priority_by_action_type(a)").
func priorityByActionType(a *action.Action) int {
	return a.Type.BasePriority()
}

// AdjustActions recomputes priorities on s's actions using the closed rule
// from spec.md §4.4, run before every action selection.
func AdjustActions(s *state.State) {
	total := 0
	for _, a := range s.Actions {
		base := priorityByActionType(a)
		adjusted := base

		if !a.HasTarget {
			if !a.Visited {
				adjusted = base + 5
			}
			a.Priority = adjusted
			total += adjusted - base
			continue
		}

		if !a.Valid {
			a.Priority = base
			continue
		}

		if !a.Visited {
			adjusted += 20
		}
		if !s.IsSaturated(a) {
			adjusted += 5 * base
		}
		if adjusted < 0 {
			adjusted = 0
		}
		a.Priority = adjusted
		total += adjusted - base
	}
	_ = total // state priority is exposed via State.CountPriority, not stored
}

// alphaForVisits implements the spec.md §4.4 alpha-decay table, floored at
// cfg.AlphaFloor.
func alphaForVisits(visits int, floor float64) float64 {
	var alpha float64
	switch {
	case visits > 250_000:
		alpha = 0.1
	case visits > 100_000:
		alpha = 0.2
	case visits > 50_000:
		alpha = 0.3
	case visits > 20_000:
		alpha = 0.4
	default:
		alpha = 0.5
	}
	if alpha < floor {
		return floor
	}
	return alpha
}

// ResolveNewAction implements spec.md §4.4 resolve_new_action: adjust
// priorities on the new state, run the kind-specific selection strategy,
// and fall through to a random valid action if every strategy returned
// nothing (PolicyExhaustedError, recovered locally per spec.md §7).
func (a *Agent) ResolveNewAction(g *graph.Graph) *action.Action {
	a.mu.Lock()
	s := a.newState
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	AdjustActions(s)

	selected := a.selectNewAction(g, s)
	if selected == nil {
		selected = s.RandomPick(action.ValidFilter(), true)
	}

	a.mu.Lock()
	a.newAction = selected
	a.mu.Unlock()
	return selected
}

// selectNewAction layers the six selection strategies from spec.md §4.4 in
// order, falling through to the next on nil. Strategies 1-4 are shared
// between ReuseAgent and DoubleSarsaAgent; only the Q lookup in strategy 4
// and the Q-priority filter in strategy 5 differ by kind.
func (a *Agent) selectNewAction(g *graph.Graph, s *state.State) *action.Action {
	visited := g.VisitedActivities()

	if picked := a.strategyUnperformedNotInModel(s); picked != nil {
		return picked
	}
	if picked := a.strategyUnperformedInModel(s, visited); picked != nil {
		return picked
	}
	if picked := s.RandomPickUnvisited(); picked != nil {
		return picked
	}
	if picked := a.strategyQValuePick(s, visited); picked != nil {
		return picked
	}
	if picked := a.strategyEpsilonGreedy(s); picked != nil {
		return picked
	}
	return nil
}

// strategyUnperformedNotInModel is spec.md §4.4 strategy 1: weighted pick
// over actions whose hash is absent from the reuse model and whose
// visit-count is 0. The target-less BACK action is left out of this pick.
func (a *Agent) strategyUnperformedNotInModel(s *state.State) *action.Action {
	f := unperformedNotInModelFilter{model: a.model, activity: s.Activity}
	return s.RandomPick(f, false)
}

type unperformedNotInModelFilter struct {
	model    *ReuseModel
	activity string
}

func (f unperformedNotInModelFilter) Include(a *action.Action) bool {
	return a.Valid && a.Enabled && a.VisitCount == 0 && !f.model.Contains(a.ActivityHash(f.activity))
}
func (f unperformedNotInModelFilter) Priority(a *action.Action) int { return a.Priority }

// strategyUnperformedInModel is spec.md §4.4 strategy 2: among target-
// bearing, unvisited actions with a reuse-model entry, pick the argmax of
// a Gumbel-perturbed q = 10*p_new_activity(a), subject to q > 1e-4.
func (a *Agent) strategyUnperformedInModel(s *state.State, visited stringset.Set) *action.Action {
	var best *action.Action
	var bestQ float64
	for _, act := range s.Actions {
		if !act.HasTarget || act.Visited || !act.Valid || !act.Enabled {
			continue
		}
		h := act.ActivityHash(s.Activity)
		if !a.model.Contains(h) {
			continue
		}
		q := 10 * a.model.PNewActivity(h, visited)
		q = gumbelPerturb(q, rand.Float64())
		if q <= 1e-4 {
			continue
		}
		if best == nil || q > bestQ {
			best = act
			bestQ = q
		}
	}
	return best
}

// strategyQValuePick is spec.md §4.4 strategy 4: an action not in the
// model and unvisited is an immediate explore pick; otherwise accumulate
// the reuse-model's p_new_activity and/or the learned Q-value, divide by
// entropy-alpha, Gumbel-perturb, and take the argmax.
func (a *Agent) strategyQValuePick(s *state.State, visited stringset.Set) *action.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	var best *action.Action
	var bestQV float64
	for _, act := range s.Actions {
		if !act.Valid || !act.Enabled {
			continue
		}
		h := act.ActivityHash(s.Activity)
		inModel := a.model.Contains(h)

		if !act.Visited && !inModel {
			return act
		}

		qv := 0.0
		if !act.Visited && inModel {
			qv += a.model.PNewActivity(h, visited)
		} else {
			qv += a.qValueLocked(h)
		}
		qv /= a.cfg.EntropyAlpha
		qv = gumbelPerturb(qv, rand.Float64())
		if best == nil || qv > bestQV {
			best = act
			bestQV = qv
		}
	}
	return best
}

// qValueLocked returns this step's Q estimate for hash h. For
// DoubleSarsaAgent, a fair coin picks Q1 or Q2 per call (spec.md §4.4
// strategy 4). Caller must hold a.mu.
func (a *Agent) qValueLocked(h uint64) float64 {
	if a.cfg.Kind == config.AgentDoubleSarsa && rand.Intn(2) == 0 {
		return a.q2[h]
	}
	return a.q1[h]
}

// strategyEpsilonGreedy is spec.md §4.4 strategy 5: with probability
// 1-epsilon pick the max-priority action under the valid+Q-priority
// filter; otherwise make a priority-weighted random pick among valid
// actions.
func (a *Agent) strategyEpsilonGreedy(s *state.State) *action.Action {
	if rand.Float64() < a.cfg.Epsilon {
		return s.RandomPick(action.ValidFilter(), true)
	}
	a.mu.Lock()
	q1, q2 := cloneQMap(a.q1), cloneQMap(a.q2)
	activity := s.Activity
	useQ2 := a.cfg.Kind == config.AgentDoubleSarsa && rand.Intn(2) == 0
	a.mu.Unlock()

	f := stateQPriorityFilter{q1: q1, q2: q2, useQ2: useQ2, activity: activity}
	return s.GreedyPickMaxQ(f)
}

type stateQPriorityFilter struct {
	q1, q2   map[uint64]float64
	useQ2    bool
	activity string
}

func (f stateQPriorityFilter) Include(a *action.Action) bool { return a.Valid && a.Enabled }
func (f stateQPriorityFilter) Priority(a *action.Action) int {
	m := f.q1
	if f.useQ2 {
		m = f.q2
	}
	q := m[a.ActivityHash(f.activity)]
	boost := int(math.Ceil(10 * q))
	return a.Priority + boost
}

func cloneQMap(m map[uint64]float64) map[uint64]float64 {
	cp := make(map[uint64]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// MoveForward shifts the state/action windows by one and clears the
// pending new_action (spec.md §4.4 move_forward, invariant 7:
// "last = previous(current), current = previous(new)"). next overrides
// a.newState before the shift when the caller already has the
// just-observed state in hand rather than relying on the OnAddNode
// listener hook (spec.md §4.6 step 6).
func (a *Agent) MoveForward(next *state.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if next != nil {
		a.newState = next
	}
	a.lastState, a.currentState = a.currentState, a.newState
	a.lastAction, a.currentAction = a.currentAction, a.newAction
	a.newAction = nil
}
