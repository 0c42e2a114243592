// Package tui renders the setup wizard and a live widget in the terminal.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/internal/wizard"
)

func RunWizard(lister wizard.DatabaseLister, baseURL string) error {
	m := newWizardModel(lister, baseURL, nil)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// RunWidget shows an already mounted loop. n must be the loop's OnChange target.
func RunWidget(loop *widget.Loop, n *Notifier) error {
	m := newWidgetModel(loop, n)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
