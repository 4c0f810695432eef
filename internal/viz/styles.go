package viz

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	statusStyles = map[string]lipgloss.Style{
		"CONVERGED":        lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		"MAX_ITER_REACHED": lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		"DIVERGED":         lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		"TIMED_OUT":        lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
	}
)

// StatusStyle picks the color for a solver status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return valueStyle
}
