package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mx/internal/driver"
	"mx/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

func (m uiMode) enabled() bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return isTerminal(os.Stdout)
}

type buildOutcome struct {
	res *driver.Result
	err error
}

// buildWithUI runs the build in the background and shows its progress
// until the driver finishes. Quitting the UI cancels the build.
func buildWithUI(ctx context.Context, title string, paths []string, opts driver.Options) (*driver.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// на каждый юнит приходит не больше трёх событий, канал не блокирует воркеры
	events := make(chan driver.Event, 3*len(paths)+1)
	outcome := make(chan buildOutcome, 1)

	go func() {
		opts.Progress = func(ev driver.Event) { events <- ev }
		res, err := driver.Build(ctx, paths, opts)
		close(events)
		outcome <- buildOutcome{res: res, err: err}
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, paths, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	out := <-outcome
	if out.err == nil && uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}
