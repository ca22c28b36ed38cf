package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"

	"sp2yt/internal/auth"
	"sp2yt/internal/pipeline"
	"sp2yt/internal/services"
	"sp2yt/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer

	// youtubeOpts exists so tests can point the search client at a fake.
	youtubeOpts []option.ClientOption
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
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
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the runner's logger, used by the TUI to redirect logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, convertCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the configured sqlite database and applies migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// newProvider builds the credential provider selected by the configured flow.
// The returned close func releases the token store's database when one was
// opened.
func (r *Runner) newProvider() (auth.Provider, func() error, error) {
	noop := func() error { return nil }

	if r.config.Credentials.Spotify.Flow == shared.FlowApp {
		flow, err := auth.NewClientFlow(r.config.Credentials.Spotify)
		if err != nil {
			return nil, nil, err
		}
		return flow, noop, nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}

	flow, err := auth.NewCodeFlow(r.config.Credentials.Spotify, auth.NewStore(db))
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return flow, db.Close, nil
}

func (r *Runner) newSpotify(provider auth.Provider) *services.SpotifyService {
	return services.NewSpotifyService(provider, "", r.logger)
}

func (r *Runner) newYouTube(ctx context.Context) (*services.YouTubeService, error) {
	return services.NewYouTubeService(ctx, r.config.Credentials.YouTube.APIKey, r.youtubeOpts...)
}

// newEngine wires the full conversion pipeline for the active configuration.
func (r *Runner) newEngine(ctx context.Context, spotify *services.SpotifyService) (*pipeline.Engine, error) {
	youtube, err := r.newYouTube(ctx)
	if err != nil {
		return nil, err
	}

	resolver := pipeline.NewYouTubeResolver(youtube, r.config.Match.LinkStyle)
	return pipeline.NewEngine(spotify, resolver, r.config.Match.RateLimit, r.logger), nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
