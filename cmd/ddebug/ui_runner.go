package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ddebug/internal/buildpipeline"
	"ddebug/internal/reduce"
	"ddebug/internal/ui"
)

type reduceOutcome struct {
	result buildpipeline.ReduceResult
	err    error
}

func runReduceWithUI(ctx context.Context, title string, req *buildpipeline.ReduceRequest) (buildpipeline.ReduceResult, error) {
	events := make(chan reduce.Event, 256)
	outcomeCh := make(chan reduceOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Sink = reduce.ChannelSink{Ch: events}
		res, err := buildpipeline.Reduce(ctx, &reqCopy)
		outcomeCh <- reduceOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	// No input and no signal handler: ctrl+c stays a SIGINT for the session.
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil), tea.WithoutSignalHandler())
	_, uiErr := program.Run()
	// keep the session unblocked if the view stopped early
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
