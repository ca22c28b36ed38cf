package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"sp2yt/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loaded, err := shared.LoadConfig("config.toml"); err == nil {
			config = loaded
		} else {
			logger.Warnf("failed to load config.toml, using defaults: %v", err)
		}
	}
	shared.ApplyEnv(config)

	if err := config.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "sp2yt",
		Usage:    "Convert Spotify playlists to YouTube video links",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
