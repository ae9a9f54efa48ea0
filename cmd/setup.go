package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the play store and runs migrations.
//
// Creates a config file from the bundled template when none exists, so a
// first run needs no manual preparation.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	rollback := cmd.Bool("rollback")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("Failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("Config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("Failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("Config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("Failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	config.ApplyEnv()
	if db := cmd.String("db"); db != "" {
		config.Database.Path = db
	}
	r.config = config
	r.configPath = configPath

	r.logger.Info("Initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if rollback {
		r.logger.Info("Rolling back most recent migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		r.writePlain("✓ Rolled back most recent migration\n")
		return nil
	}

	r.logger.Info("Running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := repositories.NewPlayRepository(db).EnsureSchema(); err != nil {
		return fmt.Errorf("failed to ensure play table: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	return nil
}

// SetupConfig creates a config.toml from the bundled template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("Config file created", "path", configPath)
	r.writePlain("✓ Config file created at %s\n", configPath)
	r.writePlain("Fill in your Spotify client_id and client_secret, then run: playlog auth\n")
	return nil
}
