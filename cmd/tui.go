package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/desertthunder/scrapectl/internal/tasks"
	"github.com/desertthunder/scrapectl/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive task browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.connect(); err != nil {
		return err
	}

	session, err := r.auth.Status()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !session.IsAuthenticated() {
		return fmt.Errorf("%w: run 'scrapectl auth login' first", shared.ErrNotAuthenticated)
	}

	watcher := tasks.NewWatcher(r.stream, r.logger)
	defer watcher.Close()

	model := ui.NewModel(ctx, r.scrape, watcher, r.logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
