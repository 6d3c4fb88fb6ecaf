package tui

import "github.com/charmbracelet/lipgloss"

const (
	sidebarWidth = 30
	cursorBlock  = "▊"
)

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	muted  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
	danger = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(muted).
			PaddingRight(1)

	sessionStyle         = lipgloss.NewStyle().Foreground(muted)
	selectedSessionStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	activeSessionStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#EEEEEE"})

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(accent)
	assistantLabelStyle = lipgloss.NewStyle().Bold(true)
	errorStyle          = lipgloss.NewStyle().Foreground(danger)
	statusStyle         = lipgloss.NewStyle().Foreground(muted)
)
