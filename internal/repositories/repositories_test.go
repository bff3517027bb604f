package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/genretime/genretime/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
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

func TestGenreRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		genre, err := repo.Create("shoegaze")
		if err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		if genre.ID == 0 {
			t.Error("genre ID should be assigned by the store")
		}
		if genre.ListenedSeconds != 0 {
			t.Errorf("new genre should start at 0 seconds, got %d", genre.ListenedSeconds)
		}
	})

	t.Run("Create duplicate fails and leaves first record intact", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		first, err := repo.Create("dream pop")
		if err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}
		if err := repo.Increment(first.ID, 30); err != nil {
			t.Fatalf("failed to increment: %v", err)
		}

		_, err = repo.Create("dream pop")
		if !errors.Is(err, shared.ErrDuplicateGenre) {
			t.Fatalf("expected ErrDuplicateGenre, got %v", err)
		}

		unchanged, err := repo.GetByName("dream pop")
		if err != nil {
			t.Fatalf("failed to get genre: %v", err)
		}
		if unchanged.ID != first.ID || unchanged.ListenedSeconds != 30 {
			t.Errorf("first record should be unchanged, got %+v", unchanged)
		}
	})

	t.Run("GetByName is exact and case-sensitive", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		if _, err := repo.Create("Detroit techno"); err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		if _, err := repo.GetByName("Detroit techno"); err != nil {
			t.Errorf("exact name should match: %v", err)
		}

		if _, err := repo.GetByName("detroit techno"); !errors.Is(err, shared.ErrGenreNotFound) {
			t.Errorf("lowercased name should not match, got %v", err)
		}

		if _, err := repo.GetByName("Detroit"); !errors.Is(err, shared.ErrGenreNotFound) {
			t.Errorf("substring should not match, got %v", err)
		}
	})

	t.Run("SearchByName is case-insensitive substring ordered by name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		for _, name := range []string{"indie rock", "Indietronica", "post-rock", "indie folk"} {
			if _, err := repo.Create(name); err != nil {
				t.Fatalf("failed to create %s: %v", name, err)
			}
		}

		genres, err := repo.SearchByName("INDIE")
		if err != nil {
			t.Fatalf("failed to search: %v", err)
		}

		if len(genres) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(genres))
		}
		for i := 1; i < len(genres); i++ {
			if genres[i-1].Name > genres[i].Name {
				t.Errorf("results not ordered by name: %q before %q", genres[i-1].Name, genres[i].Name)
			}
		}
	})

	t.Run("TopByListened excludes zero counters and sorts descending", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		ambient, _ := repo.Create("ambient")
		techno, _ := repo.Create("techno")
		if _, err := repo.Create("unplayed"); err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		if err := repo.Increment(ambient.ID, 120); err != nil {
			t.Fatalf("failed to increment: %v", err)
		}
		if err := repo.Increment(techno.ID, 300); err != nil {
			t.Fatalf("failed to increment: %v", err)
		}

		top, err := repo.TopByListened()
		if err != nil {
			t.Fatalf("failed to query top genres: %v", err)
		}

		if len(top) != 2 {
			t.Fatalf("expected 2 genres with listening time, got %d", len(top))
		}
		if top[0].Name != "techno" || top[1].Name != "ambient" {
			t.Errorf("expected [techno ambient], got [%s %s]", top[0].Name, top[1].Name)
		}
	})

	t.Run("Increment accumulates", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		genre, err := repo.Create("jazz")
		if err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		if err := repo.Increment(genre.ID, 2); err != nil {
			t.Fatalf("first increment failed: %v", err)
		}
		if err := repo.Increment(genre.ID, 3); err != nil {
			t.Fatalf("second increment failed: %v", err)
		}

		stored, err := repo.Get(genre.ID)
		if err != nil {
			t.Fatalf("failed to get genre: %v", err)
		}
		if stored.ListenedSeconds != 5 {
			t.Errorf("expected 5 seconds accumulated, got %d", stored.ListenedSeconds)
		}
	})

	t.Run("Increment edge cases", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		genre, err := repo.Create("drone")
		if err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		if err := repo.Increment(genre.ID, 0); err != nil {
			t.Errorf("zero increment should succeed, got %v", err)
		}

		if err := repo.Increment(genre.ID, -1); !errors.Is(err, shared.ErrNegativeSeconds) {
			t.Errorf("expected ErrNegativeSeconds, got %v", err)
		}

		if err := repo.Increment(9999, 10); !errors.Is(err, shared.ErrGenreNotFound) {
			t.Errorf("expected ErrGenreNotFound for unknown id, got %v", err)
		}
	})

	t.Run("Names with quotes round-trip", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenreRepository(db)

		name := `drum 'n' bass`
		created, err := repo.Create(name)
		if err != nil {
			t.Fatalf("failed to create genre: %v", err)
		}

		stored, err := repo.GetByName(name)
		if err != nil {
			t.Fatalf("failed to get genre: %v", err)
		}
		if stored.ID != created.ID {
			t.Errorf("expected id %d, got %d", created.ID, stored.ID)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Run("RefreshToken on empty store", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if _, err := repo.RefreshToken(); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Save and replace", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if err := repo.SaveRefreshToken("token-one"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.SaveRefreshToken("token-two"); err != nil {
			t.Fatalf("failed to replace token: %v", err)
		}

		token, err := repo.RefreshToken()
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if token != "token-two" {
			t.Errorf("expected token-two, got %s", token)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
			t.Fatalf("failed to count sessions: %v", err)
		}
		if count != 1 {
			t.Errorf("sessions table should hold one row, got %d", count)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)

		if err := repo.SaveRefreshToken("token"); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear session: %v", err)
		}

		if _, err := repo.RefreshToken(); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession after clear, got %v", err)
		}
	})
}
