// package formatter exports genre listening statistics to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/genretime/genretime/internal/models"
)

// FormatListened renders a seconds counter as a compact "1h 02m 03s" string.
func FormatListened(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ExportToCSV converts genre stats to CSV with columns: Rank, Genre, Seconds, Listened
func ExportToCSV(genres []models.Genre) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Genre", "Seconds", "Listened"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, genre := range genres {
		record := []string{
			strconv.Itoa(i + 1),
			genre.Name,
			strconv.FormatInt(genre.ListenedSeconds, 10),
			FormatListened(genre.ListenedSeconds),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts genre stats to a Markdown table under the given title
func ExportToMarkdown(genres []models.Genre, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Listening Time by Genre"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if len(genres) == 0 {
		buf.WriteString("No listening time recorded yet.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Rank | Genre | Listened |\n")
	buf.WriteString("|------|-------|----------|\n")

	for i, genre := range genres {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i+1, genre.Name, FormatListened(genre.ListenedSeconds)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts genre stats to aligned plain text for terminal output
func ExportToText(genres []models.Genre) []byte {
	var buf bytes.Buffer

	if len(genres) == 0 {
		buf.WriteString("No listening time recorded yet.\n")
		return buf.Bytes()
	}

	width := 0
	for _, genre := range genres {
		if len(genre.Name) > width {
			width = len(genre.Name)
		}
	}

	for i, genre := range genres {
		buf.WriteString(fmt.Sprintf("%3d. %-*s  %s\n", i+1, width, genre.Name, FormatListened(genre.ListenedSeconds)))
	}

	return buf.Bytes()
}
