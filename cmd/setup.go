package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret\n")
	r.writePlain("2. Run 'jitdj auth' to authorize playback control\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if cmd.Bool("rollback") {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back latest migration on %s\n", r.config.Database.Path)
		return nil
	}

	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}
