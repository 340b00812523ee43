package monitor

import "github.com/charmbracelet/lipgloss"

// Styles holds the handful of lipgloss styles the dashboard actually uses.
// Unlike a full TUI theme this stays deliberately small: a live graph
// readout needs a header, section titles, body text, and a muted variant
// for secondary figures, nothing more.
type Styles struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
}

// NewStyles builds the dashboard's fixed style set.
func NewStyles() Styles {
	primary := lipgloss.Color("#8BC34A")
	muted := lipgloss.Color("#6c7a89")

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primary).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Body: lipgloss.NewStyle(),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
	}
}
