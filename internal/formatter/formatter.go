// package formatter renders conversion results to exportable formats (CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"sp2yt/internal/pipeline"
)

// notFoundCell is written where a track had no match.
const notFoundCell = "Not Found"

// ExportToCSV renders results as CSV with columns: Song, Youtube Link.
// The Song column carries the search form of the track ("Title Artist").
// Output depends only on the results, so the same run always renders the
// same bytes.
func ExportToCSV(results []pipeline.MatchResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Song", "Youtube Link"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{songCell(result), linkCell(result)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText renders results as plain text, one "Title Artist: link" line
// per track.
func ExportToText(results []pipeline.MatchResult) []byte {
	var buf bytes.Buffer
	for _, result := range results {
		buf.WriteString(fmt.Sprintf("%s: %s\n", songCell(result), linkCell(result)))
	}
	return buf.Bytes()
}

func songCell(result pipeline.MatchResult) string {
	song := result.Track.Title
	if result.Track.Artist != "" {
		song += " " + result.Track.Artist
	}
	return song
}

func linkCell(result pipeline.MatchResult) string {
	switch result.Status {
	case pipeline.StatusFound:
		return result.Link
	case pipeline.StatusError:
		return fmt.Sprintf("Error: %s", result.Reason)
	default:
		return notFoundCell
	}
}

// ExportFileName builds the export file name for a playlist, sanitizing
// characters that do not belong in file names.
func ExportFileName(playlistName, extension string) string {
	name := strings.TrimSpace(playlistName)
	if name == "" {
		name = "playlist"
	}

	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	sanitized = strings.Join(strings.Fields(sanitized), "_")

	return fmt.Sprintf("%s_spotify_to_youtube.%s", sanitized, extension)
}

// WriteExport writes rendered export data to a file.
func WriteExport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
