package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/services"
	"github.com/genretime/genretime/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	db      *sql.DB
	sampler services.Sampler
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB and Sampler are optional; commands open the configured database and
// build the Spotify sampler on demand when they are nil. Tests inject both.
type RunnerOpts struct {
	Config  *shared.Config
	DB      *sql.DB
	Sampler services.Sampler
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		db:      opts.DB,
		sampler: opts.Sampler,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. to a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, authCommand, trackCommand, genresCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database returns the injected handle or opens the configured one. The
// returned cleanup is a no-op for injected handles so tests keep ownership.
func (r *Runner) database() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return db, func() { db.Close() }, nil
}

// spotifyService builds a Spotify sampler backed by the session store.
func (r *Runner) spotifyService(db *sql.DB) (*services.SpotifyService, error) {
	sessions := repositories.NewSessionRepository(db)
	svc, err := services.NewSpotifyService(
		r.config.Credentials.Spotify.ClientID,
		r.config.Credentials.Spotify.RedirectURI,
		sessions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return svc, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
