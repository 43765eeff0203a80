package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"camconnect/internal/wizard"
)

// Subscriber is implemented by controllers that push snapshots.
type Subscriber interface {
	Subscribe(fn func(wizard.Snapshot)) func()
}

// Controller combines the controls and the push stream the UI needs.
type Controller interface {
	Wizard
	Subscriber
}

// Run shows the terminal wizard until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, stdout io.Writer, opts Options) error {
	if stdout == nil {
		stdout = os.Stdout
	}
	updates := make(chan wizard.Snapshot, 16)
	unsubscribe := ctrl.Subscribe(func(snap wizard.Snapshot) {
		select {
		case updates <- snap:
		default:
			// the refresh tick catches up on anything dropped here
		}
	})
	defer unsubscribe()

	program := tea.NewProgram(
		NewModel(ctrl, updates, opts),
		tea.WithOutput(stdout),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
