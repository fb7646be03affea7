package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	SQL     lipgloss.Style
}

// NewStyles builds styles bound to w. The color profile follows the
// terminal behind w and honors NO_COLOR and CLICOLOR_FORCE.
func NewStyles(w io.Writer) *Styles {
	lr := lipgloss.NewRenderer(w)
	lr.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())

	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		SQL:     lr.NewStyle().Foreground(lipgloss.Color("6")).PaddingLeft(4),
	}
}
