package tracker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/genretime/genretime/internal/models"
	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/shared"
)

// scriptedSampler replays a fixed sequence of samples (nil = nothing playing)
type scriptedSampler struct {
	samples []*models.TrackSample
	errs    []error
	calls   int
}

func (s *scriptedSampler) Sample(ctx context.Context) (*models.TrackSample, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.samples) {
		return nil, nil
	}
	return s.samples[i], nil
}

func (s *scriptedSampler) Name() string { return "scripted" }

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys, err := shared.MigrationSource("")
	if err != nil {
		t.Fatalf("failed to open migrations: %v", err)
	}
	if _, err := shared.Upgrade(db, fsys); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleAt(trackID string, elapsed float64, genres ...string) *models.TrackSample {
	return &models.TrackSample{
		TrackID:   trackID,
		Title:     "Track " + trackID,
		Elapsed:   elapsed,
		Genres:    genres,
		SampledAt: time.Now(),
	}
}

func listened(t *testing.T, repo *repositories.GenreRepository, name string) int64 {
	t.Helper()
	genre, err := repo.GetByName(name)
	if errors.Is(err, shared.ErrGenreNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("failed to get genre %s: %v", name, err)
	}
	return genre.ListenedSeconds
}

func newTestTracker(t *testing.T, sampler *scriptedSampler, notify chan Notification) (*Tracker, *repositories.GenreRepository) {
	t.Helper()

	repo := repositories.NewGenreRepository(setupTestDB(t))
	tr := New(Opts{
		Sampler:       sampler,
		Genres:        repo,
		Interval:      2 * time.Second,
		Tolerance:     time.Second,
		Notifications: notify,
	})
	return tr, repo
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("steady playback credits the interval per tick", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 10, "techno", "ambient"),
			sampleAt("t1", 12, "techno", "ambient"),
			sampleAt("t1", 14, "techno", "ambient"),
			sampleAt("t1", 16, "techno", "ambient"),
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		for range sampler.samples {
			tr.tick(ctx)
		}

		// First tick only establishes the baseline; three deltas of 2s follow.
		for _, name := range []string{"techno", "ambient"} {
			if got := listened(t, repo, name); got != 6 {
				t.Errorf("expected %s credited 6s, got %d", name, got)
			}
		}
	})

	t.Run("forward seek credits nothing that tick", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 10, "techno"),
			sampleAt("t1", 30, "techno"), // 10x the interval: a seek
			sampleAt("t1", 32, "techno"),
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		tr.tick(ctx)
		tr.tick(ctx)
		if got := listened(t, repo, "techno"); got != 0 {
			t.Errorf("seek tick should credit 0, got %d", got)
		}

		// The seek still re-baselined, so playback resumes crediting.
		tr.tick(ctx)
		if got := listened(t, repo, "techno"); got != 2 {
			t.Errorf("expected 2s after resuming, got %d", got)
		}
	})

	t.Run("backwards seek credits nothing", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 60, "jazz"),
			sampleAt("t1", 5, "jazz"),
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		tr.tick(ctx)
		tr.tick(ctx)

		if got := listened(t, repo, "jazz"); got != 0 {
			t.Errorf("negative delta should credit 0, got %d", got)
		}
	})

	t.Run("track change credits only the new track's plausible elapsed", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 100, "rock"),
			sampleAt("t2", 1.5, "metal"),
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		tr.tick(ctx)
		tr.tick(ctx)

		if got := listened(t, repo, "rock"); got != 0 {
			t.Errorf("old track's genres should get nothing, got %d", got)
		}
		if got := listened(t, repo, "metal"); got != 1 {
			t.Errorf("expected 1s for the new track, got %d", got)
		}
	})

	t.Run("switching into a far-along track credits nothing", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 10, "rock"),
			sampleAt("t2", 120, "metal"), // skipped deep into the track
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		tr.tick(ctx)
		tr.tick(ctx)

		if got := listened(t, repo, "metal"); got != 0 {
			t.Errorf("far-along new track should credit 0, got %d", got)
		}
	})

	t.Run("nothing playing keeps the baseline", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 10, "ambient"),
			nil, // paused
			sampleAt("t1", 11, "ambient"), // resumed shortly after
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		tr.tick(ctx)
		tr.tick(ctx)
		if tr.baseline == nil || tr.baseline.Elapsed != 10 {
			t.Fatal("baseline should persist through pause")
		}

		tr.tick(ctx)
		if got := listened(t, repo, "ambient"); got != 1 {
			t.Errorf("expected 1s credited after resume, got %d", got)
		}
	})

	t.Run("sampler errors skip the tick and keep polling", func(t *testing.T) {
		sampler := &scriptedSampler{
			samples: []*models.TrackSample{
				sampleAt("t1", 10, "dub"),
				nil,
				sampleAt("t1", 12, "dub"),
			},
			errs: []error{nil, shared.ErrSamplerUnavailable, nil},
		}
		notify := make(chan Notification, 8)
		tr, repo := newTestTracker(t, sampler, notify)

		tr.tick(ctx)
		tr.tick(ctx)
		tr.tick(ctx)

		if got := listened(t, repo, "dub"); got != 2 {
			t.Errorf("expected 2s credited around the failed tick, got %d", got)
		}

		var sawError bool
		for len(notify) > 0 {
			if n := <-notify; n.Kind == KindError {
				sawError = true
			}
		}
		if !sawError {
			t.Error("expected an error notification")
		}
	})

	t.Run("new genres are created once and announced", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 10, "zeuhl"),
			sampleAt("t1", 12, "zeuhl"),
			sampleAt("t1", 14, "zeuhl"),
		}}
		notify := make(chan Notification, 8)
		tr, repo := newTestTracker(t, sampler, notify)

		for range sampler.samples {
			tr.tick(ctx)
		}

		if got := listened(t, repo, "zeuhl"); got != 4 {
			t.Errorf("expected 4s credited, got %d", got)
		}

		var discovered int
		for len(notify) > 0 {
			if n := <-notify; n.Kind == KindGenreDiscovered {
				discovered++
				if n.Genre != "zeuhl" {
					t.Errorf("expected genre zeuhl in notification, got %s", n.Genre)
				}
			}
		}
		if discovered != 1 {
			t.Errorf("expected exactly one discovery notification, got %d", discovered)
		}
	})

	t.Run("fractional deltas accumulate across ticks", func(t *testing.T) {
		sampler := &scriptedSampler{samples: []*models.TrackSample{
			sampleAt("t1", 0, "idm"),
			sampleAt("t1", 1.5, "idm"),
			sampleAt("t1", 3.0, "idm"),
		}}
		tr, repo := newTestTracker(t, sampler, nil)

		for range sampler.samples {
			tr.tick(ctx)
		}

		if got := listened(t, repo, "idm"); got != 3 {
			t.Errorf("expected 3s from two 1.5s deltas, got %d", got)
		}
	})

	t.Run("Run stops on context cancellation", func(t *testing.T) {
		sampler := &scriptedSampler{}
		tr, _ := newTestTracker(t, sampler, nil)
		tr.interval = 10 * time.Millisecond

		runCtx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- tr.Run(runCtx) }()

		time.Sleep(30 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("tracker did not stop after cancellation")
		}
	})
}
