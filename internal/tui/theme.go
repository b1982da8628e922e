// Package tui provides terminal prompts and styles for interactive use.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for prompts and status lines.
type Theme struct {
	Primary lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// DefaultTheme returns the StudySync palette.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"},
		Success: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"},
		Warning: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Error:   lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"},
		Muted:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Border:  lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"},
	}
}

// NoColorTheme returns a theme with empty colors. Lipgloss treats empty
// strings as "no color".
func NoColorTheme() Theme {
	return Theme{}
}

// ResolveTheme picks the theme:
//  1. NO_COLOR set → NoColorTheme
//  2. STUDYSYNC_THEME=none → NoColorTheme
//  3. Default theme
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}
	if strings.EqualFold(os.Getenv("STUDYSYNC_THEME"), "none") {
		return NoColorTheme()
	}
	return DefaultTheme()
}

// formTheme is huh's Charm theme recolored with the resolved palette.
func formTheme() *huh.Theme {
	theme := ResolveTheme()
	if theme == NoColorTheme() {
		return huh.ThemeBase()
	}
	t := huh.ThemeCharm()
	t.Focused.Title = t.Focused.Title.Foreground(theme.Primary)
	t.Focused.Base = t.Focused.Base.BorderForeground(theme.Border)
	return t
}
