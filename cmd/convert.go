package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"sp2yt/internal/formatter"
	"sp2yt/internal/pipeline"
	"sp2yt/internal/shared"
)

// Convert reads a Spotify playlist, resolves every track to a YouTube link,
// streams per-track results to the terminal, and writes the export file.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	ref := strings.TrimSpace(cmd.StringArg("playlist"))
	if ref == "" {
		return fmt.Errorf("%w: playlist URL, URI, or ID", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	if format != "csv" && format != "txt" {
		return fmt.Errorf("%w: format must be csv or txt, got %q", shared.ErrInvalidArgument, format)
	}

	provider, closeDB, err := r.newProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	spotify := r.newSpotify(provider)
	engine, err := r.newEngine(ctx, spotify)
	if err != nil {
		return err
	}

	progress := make(chan pipeline.Update, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case pipeline.PhaseFetching:
				r.writePlain("→ %s\n", update.Message)
			case pipeline.PhaseResolving:
				if update.Result != nil {
					r.writeResultRow(*update.Result, update.Completed, update.Total)
				}
			}
		}
	}()

	run, convErr := engine.Convert(ctx, progress, ref)
	close(progress)
	<-done

	if convErr != nil {
		return convErr
	}

	r.writePlainln("✓ Matched %d of %d tracks in %q", run.Found(), len(run.Results), run.PlaylistName)

	if cmd.Bool("no-export") {
		return nil
	}

	var data []byte
	switch format {
	case "csv":
		if data, err = formatter.ExportToCSV(run.Results); err != nil {
			return err
		}
	case "txt":
		data = formatter.ExportToText(run.Results)
	}

	path := cmd.String("output")
	if path == "" {
		path = formatter.ExportFileName(run.PlaylistName, format)
	}

	if err := formatter.WriteExport(path, data); err != nil {
		return err
	}

	return r.writePlain("✓ Saved to %s\n", path)
}

// writeResultRow prints one resolved track as it lands.
func (r *Runner) writeResultRow(result pipeline.MatchResult, completed, total int) {
	song := result.Track.Title
	if result.Track.Artist != "" {
		song += " " + result.Track.Artist
	}

	switch result.Status {
	case pipeline.StatusFound:
		r.writePlain("[%d/%d] %s: %s\n", completed, total, song, result.Link)
	case pipeline.StatusNotFound:
		r.writePlain("[%d/%d] %s: Not Found\n", completed, total, song)
	default:
		r.writePlain("[%d/%d] %s: Error: %s\n", completed, total, song, result.Reason)
	}
}

// Playlists lists the authenticated user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.Spotify.Flow == shared.FlowApp {
		return fmt.Errorf("%w: listing your playlists requires the user flow", shared.ErrInvalidArgument)
	}

	provider, closeDB, err := r.newProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	spotify := r.newSpotify(provider)
	playlists, err := spotify.UserPlaylists(ctx)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit > 0 && int(limit) < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Found %d playlists", len(playlists)))
	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, p.Name, p.Total)
	}

	return nil
}
