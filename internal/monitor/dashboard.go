// Package monitor is a read-only bubbletea dashboard over a running Graph:
// it subscribes as a graph.Listener and renders live counts, never
// mutating the Graph or any Agent it observes (SPEC_FULL.md §4.8).
package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"fastbot/internal/graph"
	"fastbot/internal/state"
)

// AgentSnapshot is the subset of an Agent's state worth surfacing on the
// dashboard. Dashboard never touches *agent.Agent directly so it has no
// dependency on internal/agent; callers supply these via AgentsFunc.
type AgentSnapshot struct {
	DeviceID   string
	BlockTimes int
}

// AgentsFunc returns a fresh snapshot of every device's agent each time the
// dashboard redraws.
type AgentsFunc func() []AgentSnapshot

type snapshotMsg Snapshot

// Dashboard is a tea.Model that renders a Graph's live state as it grows.
type Dashboard struct {
	g      *graph.Graph
	agents AgentsFunc
	styles Styles

	viewport viewport.Model
	updates  chan Snapshot
	latest   Snapshot

	width, height int
}

// New builds a Dashboard over g and registers it as a graph.Listener.
// agentsFn may be nil if no agent-level figures should be shown.
func New(g *graph.Graph, agentsFn AgentsFunc) *Dashboard {
	d := &Dashboard{
		g:        g,
		agents:   agentsFn,
		styles:   NewStyles(),
		viewport: viewport.New(80, 20),
		updates:  make(chan Snapshot, 8),
	}
	g.AddListener(graph.ListenerFunc(d.onAddState))
	return d
}

// onAddState is Dashboard's graph.Listener hook (spec.md §4.3, §5:
// listeners must not mutate the Graph). It only reads through
// buildSnapshot's accessors, which Graph allows because it notifies
// listeners after releasing its lock; it never calls AddState or any
// mutator. The send is
// non-blocking: if the UI hasn't drained the last update yet, this one is
// dropped rather than stalling the engine's single driver thread.
func (d *Dashboard) onAddState(_ *state.State) {
	snap := buildSnapshot(d.g)
	select {
	case d.updates <- snap:
	default:
	}
}

// Run starts the dashboard as a full-screen program and blocks until the
// user quits.
func Run(g *graph.Graph, agentsFn AgentsFunc) error {
	p := tea.NewProgram(New(g, agentsFn), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (d *Dashboard) Init() tea.Cmd {
	return d.waitForUpdate()
}

// waitForUpdate mirrors the teacher's waitForStatus channel-read pattern
// (cmd/nerd/chat/model_lifecycle.go).
func (d *Dashboard) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-d.updates)
	}
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.viewport.Width = msg.Width
		d.viewport.Height = msg.Height - 2
		d.render()
		return d, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		}
	case snapshotMsg:
		d.latest = Snapshot(msg)
		d.render()
		return d, d.waitForUpdate()
	}

	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

func (d *Dashboard) View() string {
	return d.styles.Header.Render("fastbot graph monitor") + "\n" + d.viewport.View()
}

// render rebuilds the viewport's content from the latest Snapshot.
func (d *Dashboard) render() {
	var sb strings.Builder

	sb.WriteString(d.styles.Title.Render("States"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("timestamp %s   states %s   visited actions %s   unvisited actions %s\n\n",
		humanize.Comma(int64(d.latest.Timestamp)),
		humanize.Comma(int64(d.latest.StateCount)),
		humanize.Comma(int64(d.latest.VisitedActions)),
		humanize.Comma(int64(d.latest.UnvisitedActions)),
	))

	sb.WriteString(d.styles.Title.Render("Action types"))
	sb.WriteString("\n")
	for _, t := range sortedKeys(d.latest.ActionTypeCounts) {
		sb.WriteString(fmt.Sprintf("%-16s %s\n", t, humanize.Comma(int64(d.latest.ActionTypeCounts[t]))))
	}
	sb.WriteString("\n")

	sb.WriteString(d.styles.Title.Render("Activity share"))
	sb.WriteString("\n")
	for _, a := range sortedKeys(d.latest.ActivityShares) {
		sb.WriteString(fmt.Sprintf("%-32s %.1f%%\n", a, d.latest.ActivityShares[a]*100))
	}

	if d.agents != nil {
		sb.WriteString("\n")
		sb.WriteString(d.styles.Title.Render("Agents"))
		sb.WriteString("\n")
		for _, ag := range d.agents() {
			sb.WriteString(fmt.Sprintf("%-24s block_times %s\n", ag.DeviceID, humanize.Comma(int64(ag.BlockTimes))))
		}
	}

	d.viewport.SetContent(d.styles.Body.Render(sb.String()))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
