package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/genretime/genretime/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the configuration file and database, then applies
// all pending migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := r.migrationSource("")
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	applied, err := shared.Upgrade(db, source)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	r.writePlain("  Applied %d migration(s), schema version %d\n", len(applied), version)
	return nil
}

// MigrateUp applies every pending migration script.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := r.migrationSource(cmd.String("dir"))
	if err != nil {
		return err
	}

	applied, err := shared.Upgrade(db, source)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if len(applied) == 0 {
		return r.writePlain("Schema already up to date\n")
	}

	for _, seq := range applied {
		r.writePlain("✓ Applied %03d_up.sql\n", seq)
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}
	return r.writePlain("Schema version is now %d\n", version)
}

// MigrateDown rolls the schema back to the target version.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	target := int(cmd.Int("target"))

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := r.migrationSource(cmd.String("dir"))
	if err != nil {
		return err
	}

	reverted, err := shared.Rollback(db, source, target)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	for _, seq := range reverted {
		r.writePlain("✓ Reverted %03d_down.sql\n", seq)
	}
	return r.writePlain("Schema version is now %d\n", target)
}

// MigrateStatus reports the current schema version.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"schema_version": version}, false)
	}
	return r.writePlain("Schema version: %d\n", version)
}

// migrationSource resolves the migration script set: an explicit --dir flag
// wins, then the configured migrations_dir, then the embedded scripts.
func (r *Runner) migrationSource(dir string) (fs.FS, error) {
	if dir == "" {
		dir = r.config.Database.MigrationsDir
	}

	source, err := shared.MigrationSource(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return source, nil
}
