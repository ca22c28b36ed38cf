package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"sp2yt/internal/shared"
	"sp2yt/internal/ui"
)

// TUI launches the interactive terminal UI for playlist conversion.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/sp2yt-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

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

	// The app flow cannot list the user's playlists, so the TUI starts on
	// manual link entry instead.
	var lister ui.PlaylistLister
	if r.config.Credentials.Spotify.Flow != shared.FlowApp {
		lister = spotify
	}

	model := ui.NewModel(ctx, lister, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
