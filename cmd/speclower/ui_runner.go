package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"speclower/internal/driver"
	"speclower/internal/ui"
)

type lowerOutcome struct {
	report *driver.Report
	err    error
}

// runLowerWithUI runs the batch while a progress view consumes its events.
func runLowerWithUI(ctx context.Context, title string, req driver.Request) (*driver.Report, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	go func() {
		req.Progress = driver.ChannelSink{Ch: events}
		rep, err := driver.Lower(ctx, req)
		outcomeCh <- lowerOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Inputs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// a view that quit early must not block the batch
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
