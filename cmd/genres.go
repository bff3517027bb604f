package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/genretime/genretime/internal/formatter"
	"github.com/genretime/genretime/internal/repositories"
	"github.com/genretime/genretime/internal/shared"
	"github.com/urfave/cli/v3"
)

// GenresTop lists genres ranked by accumulated listening time.
func (r *Runner) GenresTop(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	genres, err := repositories.NewGenreRepository(db).TopByListened()
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(genres) {
		genres = genres[:limit]
	}

	if useJSON {
		return r.writeJSON(genres, pretty)
	}

	if len(genres) == 0 {
		return r.writePlain("No listening time recorded yet. Run 'genretime track' first.\n")
	}

	return r.writePlain("%s", formatter.ExportToText(genres))
}

// GenresSearch finds genres whose name contains the query.
func (r *Runner) GenresSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	genres, err := repositories.NewGenreRepository(db).SearchByName(query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(genres, true)
	}

	if len(genres) == 0 {
		return r.writePlain("No genres matching %q\n", query)
	}

	for _, genre := range genres {
		r.writePlain("%s: %s\n", genre.Name, formatter.FormatListened(genre.ListenedSeconds))
	}
	return nil
}

// GenresExport writes genre totals to a file in the requested format.
func (r *Runner) GenresExport(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	outputFile := cmd.String("output")

	db, cleanup, err := r.database()
	if err != nil {
		return err
	}
	defer cleanup()

	genres, err := repositories.NewGenreRepository(db).TopByListened()
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "csv":
		if data, err = formatter.ExportToCSV(genres); err != nil {
			return fmt.Errorf("failed to build CSV: %w", err)
		}
	case "markdown", "md":
		if data, err = formatter.ExportToMarkdown(genres, "Genre Listening Time"); err != nil {
			return fmt.Errorf("failed to build Markdown: %w", err)
		}
	case "text", "txt":
		data = formatter.ExportToText(genres)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	if outputFile == "" {
		outputFile = fmt.Sprintf("genretime_export.%s", exportExtension(format))
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Infof("exported %v genres to %v", len(genres), outputFile)
	return r.writePlain("✓ Exported %d genres to %s\n", len(genres), outputFile)
}

func exportExtension(format string) string {
	switch format {
	case "markdown", "md":
		return "md"
	case "text", "txt":
		return "txt"
	default:
		return "csv"
	}
}
