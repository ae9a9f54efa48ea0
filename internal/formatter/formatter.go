// package formatter renders play batches and run ledgers for the CLI (text tables, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/playlog/internal/models"
)

// playColumns mirror the store's column order.
var playColumns = []string{"song_name", "artist_name", "played_at", "timestamp"}

// pad right-pads s with spaces to the given display width.
// Widths count runes, not bytes, so multibyte titles stay aligned.
func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// renderTable renders an aligned text table with a dashed separator under the header.
func renderTable(columns []string, rows [][]string) []byte {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}

	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var buf bytes.Buffer
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				buf.WriteString("  ")
			}
			buf.WriteString(pad(cell, widths[i]))
		}
		buf.WriteString("\n")
	}

	writeRow(columns)

	separators := make([]string, len(columns))
	for i, width := range widths {
		separators[i] = strings.Repeat("-", width)
	}
	writeRow(separators)

	for _, row := range rows {
		writeRow(row)
	}

	return buf.Bytes()
}

// BatchTable renders a transformed batch as an aligned text table in store
// column order, one row per play.
func BatchTable(records []models.PlayRecord) []byte {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{record.SongName, record.ArtistName, record.PlayedAt, record.Timestamp})
	}

	return renderTable(playColumns, rows)
}

// RunsTable renders ledger entries as an aligned text table, one row per run.
// Error messages are truncated to keep the table readable.
func RunsTable(runs []*models.Run) []byte {
	columns := []string{"seq", "status", "extracted", "inserted", "conflicts", "started_at", "finished_at", "error"}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "-"
		if t := run.FinishedAt(); t != nil {
			finished = t.Format("2006-01-02 15:04:05")
		}

		errorMessage := "-"
		if run.ErrorMessage() != "" {
			errorMessage = truncate(run.ErrorMessage(), 40)
		}

		rows = append(rows, []string{
			strconv.Itoa(run.Sequence()),
			run.Status(),
			strconv.Itoa(run.Extracted()),
			strconv.Itoa(run.Inserted()),
			strconv.Itoa(run.Conflicts()),
			run.StartedAt().Format("2006-01-02 15:04:05"),
			finished,
			errorMessage,
		})
	}

	return renderTable(columns, rows)
}

// ExportToCSV converts play records to CSV with the store's column order
func ExportToCSV(records []models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(playColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{record.SongName, record.ArtistName, record.PlayedAt, record.Timestamp}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteCSVExport writes the batch to a CSV file.
//
// Defaults to plays_{date}.csv, dated from the batch's first record.
func WriteCSVExport(records []models.PlayRecord, filepath string) (string, error) {
	if filepath == "" {
		filepath = "plays.csv"
		if len(records) > 0 {
			filepath = fmt.Sprintf("plays_%s.csv", records[0].Timestamp)
		}
	}

	data, err := ExportToCSV(records)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}
