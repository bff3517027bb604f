// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and apply pending migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// migrateCommand handles schema migration operations.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema version",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory of migration scripts (default: embedded set)",
					},
				},
				Action: r.MigrateUp,
			},
			{
				Name:  "down",
				Usage: "Roll the schema back to a target version",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory of migration scripts (default: embedded set)",
					},
					&cli.IntFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Schema version to roll back to",
						Required: true,
					},
				},
				Action: r.MigrateDown,
			},
			{
				Name:   "status",
				Usage:  "Show the current schema version",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MigrateStatus,
			},
		},
	}
}

// authCommand handles Spotify authentication operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2 (PKCE)",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether a Spotify session is saved",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved Spotify session",
				Action: r.AuthLogout,
			},
		},
	}
}

// trackCommand runs the listening tracker loop in the foreground.
func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Poll Spotify playback and credit listening time per genre",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress per-tick credit messages",
			},
		},
		Action: r.Track,
	}
}

// genresCommand handles reporting on accumulated genre totals.
func genresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "genres",
		Usage: "Query accumulated listening time",
		Commands: []*cli.Command{
			{
				Name:  "top",
				Usage: "List genres ranked by listening time",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of genres to show",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.GenresTop,
			},
			{
				Name:  "search",
				Usage: "Search genres by name substring",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.GenresSearch,
			},
			{
				Name:  "export",
				Usage: "Export genre totals to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, markdown, or text",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.GenresExport,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the live dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard with live tracking",
		Action:  r.TUI,
	}
}
