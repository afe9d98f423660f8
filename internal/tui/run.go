package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	startDelay = 50 * time.Millisecond
	sendYield  = 5 * time.Millisecond
)

// RunWithWork runs model as a bubbletea program while work executes in a
// goroutine. The program quits with WorkDoneMsg when work returns nil and with
// ErrorMsg otherwise. Quitting the program early cancels the context passed to
// work, and RunWithWork waits for work to return before it does.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, work func(ctx context.Context, send func(tea.Msg)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out))

	workErr := make(chan error, 1)
	go func() {
		// Give the program a moment to draw its first frame.
		time.Sleep(startDelay)

		err := work(ctx, func(msg tea.Msg) {
			p.Send(msg)
			time.Sleep(sendYield)
		})
		if err != nil {
			p.Send(ErrorMsg{Err: err})
		} else {
			p.Send(WorkDoneMsg{})
		}
		workErr <- err
	}()

	finalModel, runErr := p.Run()
	cancel()
	if err := <-workErr; err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if m, ok := finalModel.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
