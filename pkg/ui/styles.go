package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	speakingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	disabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
)
