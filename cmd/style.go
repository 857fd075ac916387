package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hb-chen/skillrt/internal/storage"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func outcomeStyle(o storage.Outcome) lipgloss.Style {
	switch o {
	case storage.OutcomeOK:
		return okStyle
	case storage.OutcomeError:
		return errStyle
	case storage.OutcomeCancelled:
		return warnStyle
	default:
		return dimStyle
	}
}
