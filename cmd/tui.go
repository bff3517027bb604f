package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/shared"
	"github.com/genretime/genretime/internal/tracker"
	"github.com/genretime/genretime/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard with the tracker running behind it.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	sampler := r.sampler
	if sampler == nil {
		svc, err := r.spotifyService(db)
		if err != nil {
			return err
		}
		if err := svc.Resume(ctx); err != nil {
			return err
		}
		sampler = svc
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/genretime-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	genres := repositories.NewGenreRepository(db)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := make(chan tracker.Notification, 16)
	loop := tracker.New(tracker.Opts{
		Sampler:       sampler,
		Genres:        genres,
		Logger:        fileLogger,
		Interval:      r.config.Tracker.Interval(),
		Tolerance:     r.config.Tracker.Tolerance(),
		Notifications: notifications,
	})

	go func() {
		defer close(notifications)
		if err := loop.Run(runCtx); err != nil && runCtx.Err() == nil {
			fileLogger.Errorf("tracker stopped: %v", err)
		}
	}()

	model := ui.NewModel(runCtx, genres, notifications)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
