// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes local state: config file, database, migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand manages Spotify credentials.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify credentials",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Discard stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current credential state",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand lists the authenticated user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show",
				Value: 50,
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
		Action: r.Playlists,
	}
}

// convertCommand runs a full playlist conversion.
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a Spotify playlist to YouTube video links",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv or txt",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to <playlist>_spotify_to_youtube.<ext>)",
			},
			&cli.BoolFlag{
				Name:  "no-export",
				Usage: "Print results without writing a file",
			},
		},
		Action: r.Convert,
	}
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Interactive playlist conversion",
		Action: r.TUI,
	}
}
