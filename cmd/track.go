package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/tracker"
	"github.com/urfave/cli/v3"
)

// Track runs the listening tracker loop until interrupted.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	quiet := cmd.Bool("quiet")

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

	genres := repositories.NewGenreRepository(db)

	notifications := make(chan tracker.Notification, 16)
	loop := tracker.New(tracker.Opts{
		Sampler:       sampler,
		Genres:        genres,
		Logger:        r.logger,
		Interval:      r.config.Tracker.Interval(),
		Tolerance:     r.config.Tracker.Tolerance(),
		Notifications: notifications,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go r.printNotifications(runCtx, notifications, quiet)

	r.writePlain("→ Tracking %s playback every %s (Ctrl+C to stop)\n", sampler.Name(), r.config.Tracker.Interval())

	if err := loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return r.writePlainln("✓ Tracking stopped")
}

// printNotifications mirrors tracker events onto the runner's output.
func (r *Runner) printNotifications(ctx context.Context, notifications <-chan tracker.Notification, quiet bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			switch n.Kind {
			case tracker.KindCredit:
				if !quiet {
					r.writePlain("%s\n", n.Message)
				}
			case tracker.KindGenreDiscovered:
				r.writePlain("★ %s\n", n.Message)
			case tracker.KindError:
				r.writePlain("⚠ %s\n", n.Message)
			}
		}
	}
}
