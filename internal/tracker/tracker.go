package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/genretime/genretime/internal/models"
	"github.com/genretime/genretime/internal/services"
	"github.com/genretime/genretime/internal/shared"
)

const (
	defaultInterval  = 2 * time.Second
	defaultTolerance = time.Second
)

// GenreStore is the slice of the genre repository the tracker credits through.
type GenreStore interface {
	GetByName(name string) (*models.Genre, error)
	Create(name string) (*models.Genre, error)
	Increment(id int64, seconds int64) error
}

// Tracker is the polling loop attributing listening time to genres.
//
// It samples the currently playing track once per interval, computes the
// elapsed delta against the previous sample, bounds it by the wall-clock
// time that could genuinely have passed, and credits each genre of the
// active track. The tracker is the sole owner of its baseline state; run
// exactly one per store.
type Tracker struct {
	sampler   services.Sampler
	genres    GenreStore
	logger    *log.Logger
	interval  time.Duration
	tolerance time.Duration
	notify    chan<- Notification

	baseline *models.TrackSample
	carry    float64
}

// Opts contains configuration options for creating a Tracker.
type Opts struct {
	Sampler       services.Sampler
	Genres        GenreStore
	Logger        *log.Logger
	Interval      time.Duration // polling interval, default 2s
	Tolerance     time.Duration // anti-cheat slack on top of interval+latency, default 1s
	Notifications chan<- Notification
}

// New creates a Tracker with the provided configuration.
func New(opts Opts) *Tracker {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}

	return &Tracker{
		sampler:   opts.Sampler,
		genres:    opts.Genres,
		logger:    opts.Logger,
		interval:  opts.Interval,
		tolerance: opts.Tolerance,
		notify:    opts.Notifications,
	}
}

// Run polls until ctx is cancelled. Cancellation is observed at the top of
// each tick; an in-flight sample or store write is never interrupted, though
// the Spotify client does honor ctx for its HTTP calls.
//
// Ticks are spaced by the full configured interval after each sample returns,
// not interval minus latency.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("listening tracker started", "interval", t.interval, "tolerance", t.tolerance)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("listening tracker stopped")
			return ctx.Err()
		case <-timer.C:
		}

		t.tick(ctx)
		timer.Reset(t.interval)
	}
}

// tick performs one poll: sample, compare against the baseline, credit, re-baseline.
func (t *Tracker) tick(ctx context.Context) {
	start := time.Now()
	sample, err := t.sampler.Sample(ctx)
	latency := time.Since(start)

	if err != nil {
		// Transient sampler failure: keep the baseline, credit nothing,
		// retry at the next natural tick.
		t.logger.Warn("sample failed", "error", err)
		t.send(errorNote(err))
		return
	}

	if sample == nil {
		// Nothing playing. The baseline persists so a resumed song
		// continues from its recorded progress.
		return
	}

	defer func() { t.baseline = sample }()

	if t.baseline == nil {
		t.logger.Debug("baseline adopted", "track", sample.Title)
		return
	}

	// Any credited delta must fit inside the wall-clock window since the
	// previous sample; anything larger means a seek, a skip into a
	// far-along track, or missed polls, and is not credited.
	bound := (t.interval + latency + t.tolerance).Seconds()

	var delta float64
	if sample.TrackID == t.baseline.TrackID {
		delta = sample.Elapsed - t.baseline.Elapsed
		if delta < 0 || delta >= bound {
			t.logger.Debug("delta outside bounds", "delta", delta, "bound", bound, "track", sample.Title)
			delta = 0
		}
	} else {
		// Track changed: only the new track's own elapsed time was
		// observably listened to, and only when it is small enough to
		// have started since the last poll.
		delta = sample.Elapsed
		if delta < 0 || delta >= bound {
			t.logger.Debug("new track elapsed outside bounds", "elapsed", delta, "bound", bound, "track", sample.Title)
			delta = 0
		}
	}

	t.credit(sample, delta)
}

// credit converts the accepted delta into whole seconds (carrying the
// fractional remainder to the next tick) and increments every genre of the
// sampled track, creating records for genres seen for the first time.
func (t *Tracker) credit(sample *models.TrackSample, delta float64) {
	if delta < 0 {
		return
	}

	total := delta + t.carry
	seconds := int64(total)
	t.carry = total - float64(seconds)

	if seconds == 0 {
		return
	}

	for _, name := range sample.Genres {
		genre, err := t.lookupOrCreate(name)
		if err != nil {
			t.logger.Warn("genre lookup failed", "genre", name, "error", err)
			t.send(errorNote(err))
			continue
		}

		if err := t.genres.Increment(genre.ID, seconds); err != nil {
			t.logger.Warn("credit failed", "genre", name, "error", err)
			t.send(errorNote(err))
		}
	}

	t.send(creditNote(sample.Title, seconds))
}

// lookupOrCreate fetches a genre record, creating it on first observation.
func (t *Tracker) lookupOrCreate(name string) (*models.Genre, error) {
	genre, err := t.genres.GetByName(name)
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, shared.ErrGenreNotFound) {
		return nil, err
	}

	genre, err = t.genres.Create(name)
	if errors.Is(err, shared.ErrDuplicateGenre) {
		// Created elsewhere between lookup and insert.
		return t.genres.GetByName(name)
	}
	if err != nil {
		return nil, err
	}

	t.logger.Info("new genre discovered", "genre", name)
	t.send(genreNote(name))
	return genre, nil
}

// send delivers a notification without blocking. Subscribers that fall
// behind miss updates rather than stalling the polling loop.
func (t *Tracker) send(n Notification) {
	if t.notify == nil {
		return
	}
	select {
	case t.notify <- n:
	default:
	}
}
