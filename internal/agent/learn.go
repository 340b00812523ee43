package agent

import (
	"math"
	"math/rand"

	"bitbucket.org/creachadair/stringset"

	"fastbot/internal/action"
	"fastbot/internal/config"
	"fastbot/internal/graph"
	"fastbot/internal/state"
)

// UpdateStrategy implements spec.md §4.4's per-step learning: reward for
// the action just executed (currentAction, chosen from currentState,
// landing on newState), the N-step Q update over the reward/action
// history window, and the reuse-model observation update. Called after
// ResolveNewAction and before MoveForward (spec.md §4.6 step 5 ordering).
func (a *Agent) UpdateStrategy(g *graph.Graph) {
	a.mu.Lock()
	lastExecuted := a.currentAction
	fromState := a.currentState
	newState := a.newState
	nextAction := a.newAction
	a.mu.Unlock()

	if lastExecuted == nil || fromState == nil || newState == nil {
		return
	}

	visited := g.VisitedActivities()
	lastHash := lastExecuted.ActivityHash(fromState.Activity)

	r := a.computeReward(lastHash, lastExecuted, newState, visited)

	a.mu.Lock()
	a.pushHistory(r, lastExecuted, fromState.Activity)
	a.qUpdate(nextAction, newState)
	a.mu.Unlock()

	if lastExecuted.HasTarget {
		a.model.Increment(lastHash, newState.Activity)
	}
}

// computeReward implements spec.md §4.4 "Reward (per step)".
func (a *Agent) computeReward(lastHash uint64, last *action.Action, newState *state.State, visited stringset.Set) float64 {
	term1 := 1.0
	if a.model.Contains(lastHash) {
		term1 = a.model.PNewActivity(lastHash, visited)
	}
	term1 /= math.Sqrt(1 + float64(last.VisitCount))

	term2 := stateExpectation(newState, a.model, visited) / math.Sqrt(1+float64(newState.VisitCount))

	return term1 + term2
}

// stateExpectation implements spec.md §4.4's state_expectation(s) helper.
func stateExpectation(s *state.State, model *ReuseModel, visited stringset.Set) float64 {
	total := 0.0
	for _, act := range s.Actions {
		h := act.ActivityHash(s.Activity)
		switch {
		case !model.Contains(h):
			total += 1.0
		case act.Visited:
			total += 0.5
		}
		if act.HasTarget {
			total += model.PNewActivity(h, visited)
		}
	}
	return total
}

// pushHistory appends r/executed action to the ring buffers, trimming to
// the configured window length N (spec.md §4.4 "Append r to a ring buffer
// of length N = 5"). Caller must hold a.mu.
func (a *Agent) pushHistory(r float64, executed *action.Action, fromActivity string) {
	n := a.cfg.StepWindow
	if n <= 0 {
		n = 1
	}
	a.rewards = append(a.rewards, r)
	a.actionHistory = append(a.actionHistory, executed)
	a.activityHistory = append(a.activityHistory, fromActivity)
	if len(a.rewards) > n {
		over := len(a.rewards) - n
		a.rewards = a.rewards[over:]
		a.actionHistory = a.actionHistory[over:]
		a.activityHistory = a.activityHistory[over:]
	}
}

// qUpdate implements spec.md §4.4 "Q update (N-step)" and its Double-SARSA
// variant. Caller must hold a.mu.
func (a *Agent) qUpdate(nextAction *action.Action, newState *state.State) {
	k := len(a.actionHistory)
	if k == 0 {
		return
	}

	var nextHash uint64
	if nextAction != nil && newState != nil {
		nextHash = nextAction.ActivityHash(newState.Activity)
	}

	alpha := alphaForVisits(newState.VisitCount, a.cfg.AlphaFloor)
	gamma := a.cfg.Gamma

	if a.cfg.Kind != config.AgentDoubleSarsa {
		g := a.q1[nextHash]
		for j := k - 1; j >= 0; j-- {
			g = a.rewards[j] + gamma*g
			h := a.actionHistory[j].ActivityHash(a.activityHistory[j])
			a.q1[h] += alpha * (g - a.q1[h])
		}
		return
	}

	g1 := a.q2[nextHash]
	g2 := a.q1[nextHash]
	for j := k - 1; j >= 0; j-- {
		g1 = a.rewards[j] + gamma*g1
		g2 = a.rewards[j] + gamma*g2
		h := a.actionHistory[j].ActivityHash(a.activityHistory[j])
		if rand.Intn(2) == 0 {
			a.q1[h] += alpha * (g1 - a.q1[h])
		} else {
			a.q2[h] += alpha * (g2 - a.q2[h])
		}
	}
}
