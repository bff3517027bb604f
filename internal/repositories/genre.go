package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/genretime/genretime/internal/models"
	"github.com/genretime/genretime/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// GenreRepository provides typed access to the genres table.
//
// Every operation is a single transaction on its own scoped statement, so the
// tracker's increments never interleave with foreground reads. All values are
// bound as parameters; genre names containing quotes are stored verbatim.
type GenreRepository struct {
	db *sql.DB
}

// NewGenreRepository creates a new GenreRepository with the given database connection
func NewGenreRepository(db *sql.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// Create inserts a new genre with a zero listening counter and returns the
// stored record. Returns [shared.ErrDuplicateGenre] when the name is taken.
func (r *GenreRepository) Create(name string) (*models.Genre, error) {
	result, err := r.db.Exec("INSERT INTO genres (name, listened_seconds) VALUES (?, 0)", name)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%w: %s", shared.ErrDuplicateGenre, name)
		}
		return nil, fmt.Errorf("failed to insert genre: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get genre id: %w", err)
	}

	return &models.Genre{ID: id, Name: name, ListenedSeconds: 0}, nil
}

// Get retrieves a genre by ID.
func (r *GenreRepository) Get(id int64) (*models.Genre, error) {
	row := r.db.QueryRow("SELECT id, name, listened_seconds FROM genres WHERE id = ?", id)
	return r.scanOne(row, fmt.Sprintf("id %d", id))
}

// GetByName retrieves a genre by its exact, case-sensitive name.
// Returns [shared.ErrGenreNotFound] when no such genre exists.
func (r *GenreRepository) GetByName(name string) (*models.Genre, error) {
	row := r.db.QueryRow("SELECT id, name, listened_seconds FROM genres WHERE name = ?", name)
	return r.scanOne(row, name)
}

// SearchByName returns genres whose name contains query (case-insensitive),
// ordered by name ascending.
func (r *GenreRepository) SearchByName(query string) ([]models.Genre, error) {
	rows, err := r.db.Query(
		"SELECT id, name, listened_seconds FROM genres WHERE name LIKE ? ORDER BY name ASC",
		"%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search genres: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// TopByListened returns genres with listening time recorded, most listened first.
func (r *GenreRepository) TopByListened() ([]models.Genre, error) {
	rows, err := r.db.Query(
		"SELECT id, name, listened_seconds FROM genres WHERE listened_seconds > 0 ORDER BY listened_seconds DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top genres: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Increment atomically adds seconds to a genre's listening counter.
//
// A zero increment succeeds without touching the store. Negative values are
// rejected with [shared.ErrNegativeSeconds]; counters never decrease.
func (r *GenreRepository) Increment(id int64, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: %d", shared.ErrNegativeSeconds, seconds)
	}
	if seconds == 0 {
		return nil
	}

	result, err := r.db.Exec(
		"UPDATE genres SET listened_seconds = listened_seconds + ? WHERE id = ?",
		seconds, id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment genre: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrGenreNotFound, id)
	}

	return nil
}

// scanOne scans a single [sql.Row] into a [models.Genre]
func (r *GenreRepository) scanOne(row *sql.Row, label string) (*models.Genre, error) {
	var genre models.Genre
	err := row.Scan(&genre.ID, &genre.Name, &genre.ListenedSeconds)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrGenreNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan genre: %w", err)
	}
	return &genre, nil
}

// scanAll drains [sql.Rows] into a slice of [models.Genre]
func (r *GenreRepository) scanAll(rows *sql.Rows) ([]models.Genre, error) {
	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.ListenedSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return genres, nil
}
