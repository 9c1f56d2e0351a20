package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/landersim/internal/lander"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	bold = lipgloss.NewStyle().Bold(true)

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff00ff")).
			Background(lipgloss.Color("#1a001a"))
)

func statusStyle(s lander.Status) lipgloss.Style {
	switch s {
	case lander.StatusNominal:
		return green.Bold(true)
	case lander.StatusAlerting:
		return yellow.Bold(true)
	case lander.StatusLanded:
		return cyan.Bold(true)
	default:
		return red.Bold(true)
	}
}

// bar renders a fraction in [0,1] as a fixed width gauge. Low values are
// drawn red, which suits fuel; throttle passes invert to flip the scale.
func bar(frac float64, width int, invert bool) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	s := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	level := frac
	if invert {
		level = 1 - frac
	}
	switch {
	case level > 0.4:
		return green.Render(s)
	case level > 0.1:
		return yellow.Render(s)
	}
	return red.Render(s)
}

func onOff(v bool, on, off string) string {
	if v {
		return green.Render(on)
	}
	return dim.Render(off)
}

func health(ok bool) string {
	if ok {
		return green.Render("●")
	}
	return red.Render("●")
}
