package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"sp2yt/internal/shared"
)

// Setup creates a config file if one is missing and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		if !errors.Is(err, shared.ErrInvalidArgument) {
			return err
		}
		r.writePlain("• Config already exists at %s\n", configPath)
	} else {
		r.writePlain("✓ Created %s\n", configPath)
		r.writePlain("  Fill in your Spotify and YouTube credentials before converting.\n")
	}

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}
