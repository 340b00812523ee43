// Package model wires Graph, Preference, and the per-device Agents into
// the single per-step facade the driver calls (spec.md §4.6).
package model

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fastbot/internal/action"
	"fastbot/internal/agent"
	"fastbot/internal/config"
	"fastbot/internal/graph"
	"fastbot/internal/logging"
	"fastbot/internal/operation"
	"fastbot/internal/preference"
	"fastbot/internal/state"
	"fastbot/internal/uitree"
	"fastbot/internal/widget"
)

// Model is the facade a driver thread calls once per UI snapshot (spec.md
// §4.6, §5 "predominantly single-threaded cooperative").
type Model struct {
	cfg  *config.Config
	pref *preference.Preference

	mu     sync.Mutex
	agents map[string]*agent.Agent

	g   *graph.Graph
	log *logging.Logger
}

// New constructs a Model over a fresh Graph. pref may be nil, in which
// case custom-event injection and text patching are both skipped.
func New(cfg *config.Config, pref *preference.Preference) *Model {
	return &Model{
		cfg:    cfg,
		pref:   pref,
		agents: make(map[string]*agent.Agent),
		g:      graph.New(),
		log:    logging.Get(logging.CategoryModel),
	}
}

// Graph exposes the underlying Graph for callers that want to inspect or
// snapshot it (internal/snapshot, internal/monitor).
func (m *Model) Graph() *graph.Graph { return m.g }

// Agents returns every device's Agent, snapshotted under the model lock.
// Intended for internal/monitor's AgentsFunc; callers must not mutate the
// returned Agents, only read BlockTimes and DeviceID from them.
func (m *Model) Agents() []*agent.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	agents := make([]*agent.Agent, 0, len(m.agents))
	for _, ag := range m.agents {
		agents = append(agents, ag)
	}
	return agents
}

// IsPointInBlackRect delegates to Preference's black-rect query for a
// given activity; false when no Preference is configured (spec.md §4.5).
func (m *Model) IsPointInBlackRect(activity string, x, y int32) bool {
	if m.pref == nil {
		return false
	}
	return m.pref.IsPointInBlackRects(activity, x, y)
}

// Step implements spec.md §4.6's per-step algorithm: parse, rewrite,
// policy, and emit. Every internal error is recovered locally (spec.md
// §7); the only thing that ever crosses back to the driver is an
// Operation, possibly a bare NOP.
func (m *Model) Step(deviceID string, raw []byte, activity string) *operation.Operation {
	requestID := uuid.NewString()
	log := m.log.With("request_id", requestID, "device", deviceID, "activity", activity)

	root, err := parseSnapshot(raw)
	if err != nil {
		log.Warn("parse snapshot: %v", err)
		return nopOperation()
	}
	if root.Bounds.Empty() {
		log.Warn("empty tree: root has no bounds")
	}

	uitree.Normalize(root, uitree.NormalizeOptions{ParentClickPropagate: m.cfg.Abstraction.ParentClickPropagate})

	if m.pref != nil {
		m.pref.Rewrite(root, activity)
		if custom, ok := m.pref.NextCustomAction(root, activity); ok {
			return m.emitCustomAction(custom)
		}
	}

	m.g.InternActivity(activity)
	ag := m.agentFor(deviceID)

	s := state.Build(root, activity, state.Options{
		Widget:      widgetOptionsFromConfig(m.cfg),
		OrderedHash: m.cfg.Abstraction.OrderedStateHash,
	})
	canonical := m.g.AddState(s)

	selected := m.selectAction(ag, canonical)
	selected.MarkVisited()
	ag.MoveForward(canonical)

	op := m.buildOperation(canonical, selected)
	if m.pref != nil {
		m.pref.PatchOperate(op)
	}
	op.AdbInput = op.Editable && op.Text != ""

	if m.cfg.DropDetails && !canonical.IsDetailsCleared() {
		canonical.ClearDetails()
	}

	return op
}

// selectAction implements spec.md §4.6 step 5: a forced RESTART once the
// agent's block counter exceeds the configured threshold, else the
// policy's resolve-then-learn pair.
func (m *Model) selectAction(ag *agent.Agent, canonical *state.State) *action.Action {
	if ag.BlockTimes() > m.cfg.Agent.BlockThreshold {
		return &action.Action{Type: action.RESTART, Valid: true, Enabled: true}
	}

	selected := ag.ResolveNewAction(m.g)
	ag.UpdateStrategy(m.g)
	if selected == nil {
		selected = canonical.RandomPickUnvisited()
	}
	if selected == nil {
		selected = &action.Action{Type: action.NOP, Valid: true, Enabled: true}
	}
	return selected
}

// buildOperation implements spec.md §4.6 step 6's action-to-operation
// conversion, minus the input-text patch which the caller applies via
// Preference.
func (m *Model) buildOperation(canonical *state.State, selected *action.Action) *operation.Operation {
	op := &operation.Operation{
		Act:      selected.Type,
		StateID:  canonical.ID,
		ActionID: selected.ID,
	}
	op.Throttle, op.WaitTime = throttleAndWaitFor(selected.Type)

	w := canonical.ResolveAt(selected)
	if w == nil {
		return op
	}
	bounds := w.Bounds
	op.Pos = &bounds
	op.Widget = &operation.TargetWidget{
		Class:       w.Class,
		ResourceID:  w.ResourceID,
		Text:        w.Text,
		ContentDesc: w.ContentDesc,
	}
	op.Editable = isEditableClass(w.Class)
	return op
}

// emitCustomAction converts a Preference-injected CustomAction straight
// into an Operation, skipping policy entirely (spec.md §4.6 step 1).
func (m *Model) emitCustomAction(custom *preference.CustomAction) *operation.Operation {
	op := &operation.Operation{Act: custom.Type}
	op.Throttle, op.WaitTime = throttleAndWaitFor(custom.Type)
	if custom.Bounds != nil {
		bounds := *custom.Bounds
		op.Pos = &bounds
	}
	if m.pref != nil {
		m.pref.PatchOperate(op)
	}
	op.AdbInput = op.Editable && op.Text != ""
	return op
}

// throttleAndWaitFor gives every action type a sane default pacing in the
// absence of a more specific per-app override: cold-start actions get a
// longer settle window, CRASH, SHELL_EVENT and NOP get none, everything
// else a short one.
func throttleAndWaitFor(t action.Type) (throttle, wait time.Duration) {
	switch t {
	case action.START, action.RESTART, action.CLEAN_RESTART, action.ACTIVATE:
		return 0, 2 * time.Second
	case action.CRASH, action.SHELL_EVENT, action.NOP:
		return 0, 0
	default:
		return 0, 200 * time.Millisecond
	}
}

// isEditableClass mirrors uitree's own EditText-class detection
// (internal/uitree/normalize.go) for the purpose of Operation.Editable.
func isEditableClass(class string) bool {
	return strings.Contains(class, "EditText")
}

// agentFor implements spec.md §4.6 step 3: fetch the device's Agent,
// creating one (loading its reuse model and starting persistence) the
// first time a device is seen. The first Agent a Model creates is always
// of the Reuse kind; later ones use the configured kind.
func (m *Model) agentFor(deviceID string) *agent.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ag, ok := m.agents[deviceID]; ok {
		return ag
	}

	cfg := m.cfg.Agent
	if len(m.agents) == 0 {
		cfg.Kind = config.AgentReuse
	}

	path := m.reuseModelPath(deviceID)
	rm, err := agent.LoadReuseModel(path)
	if err != nil {
		rm = agent.NewReuseModel()
	}

	ag := agent.New(deviceID, cfg, rm)
	m.g.AddListener(graph.ListenerFunc(ag.OnAddNode))

	if m.cfg.Persistence.Enabled {
		if err := ag.StartPersistence(path, m.cfg.Persistence.Interval); err != nil {
			m.log.Warn("start persistence for device %s: %v", deviceID, err)
		}
	}

	m.agents[deviceID] = ag
	return ag
}

// reuseModelPath derives a per-device save path from the configured base
// path so multiple devices never clobber each other's reuse model.
func (m *Model) reuseModelPath(deviceID string) string {
	base := m.cfg.Persistence.Path
	if base == "" {
		return base
	}
	ext := filepath.Ext(base)
	trimmed := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", trimmed, deviceID, ext)
}

// Close stops every agent's background persistence goroutine and waits for
// them all to exit (spec.md §4.6, §5 "Model.Close() cancels every agent's
// context").
func (m *Model) Close() error {
	m.mu.Lock()
	agents := make([]*agent.Agent, 0, len(m.agents))
	for _, ag := range m.agents {
		agents = append(agents, ag)
	}
	m.mu.Unlock()

	var eg errgroup.Group
	for _, ag := range agents {
		ag := ag
		eg.Go(func() error {
			ag.Stop()
			return nil
		})
	}
	return eg.Wait()
}

func nopOperation() *operation.Operation {
	return &operation.Operation{Act: action.NOP}
}

func widgetOptionsFromConfig(cfg *config.Config) widget.Options {
	return widget.Options{
		IncludeText:        cfg.Abstraction.IncludeText,
		TextLengthLimit:    cfg.Abstraction.TextLengthLimit,
		IncludeContentDesc: cfg.Abstraction.IncludeContentDesc,
		IncludeIndex:       cfg.Abstraction.IncludeIndex,
	}
}

// parseSnapshot dispatches to the binary or XML decoder per spec.md §6.1
// based on the compact format's 4-byte magic prefix.
func parseSnapshot(raw []byte) (*uitree.Element, error) {
	if bytes.HasPrefix(raw, uitree.Magic[:]) {
		return uitree.DecodeBinary(bytes.NewReader(raw))
	}
	return uitree.DecodeXML(bytes.NewReader(raw))
}
