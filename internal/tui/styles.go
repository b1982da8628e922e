package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles colors the progress and notice lines written to stderr.
type Styles struct {
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates Styles from the resolved theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(ResolveTheme())
}

func NewStylesWithTheme(theme Theme) *Styles {
	return &Styles{
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error).Bold(true),
	}
}

// KeyValue renders "key: value" with the key muted.
func (s *Styles) KeyValue(key, value string) string {
	return s.Muted.Render(key+": ") + value
}

// Outcome renders message behind a check or a cross.
func (s *Styles) Outcome(ok bool, message string) string {
	if ok {
		return s.Success.Render("✓ " + message)
	}
	return s.Error.Render("✗ " + message)
}
