package main

import (
	"context"
	"os"

	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A .env in the working directory seeds SPOTIFY_* / PLAYLOG_* variables.
	godotenv.Load()

	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("Failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	var source services.Source
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			source = svc
		} else {
			logger.Warn("Failed to initialize Spotify service", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Source:     source,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "playlog",
		Usage:    "Archive your daily Spotify listening history",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
