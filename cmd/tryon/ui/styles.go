package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E60012")),
		Label:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}
