// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "SQLite database path (overrides the configured path)",
	}
}

// setupCommand handles database and config file initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the play store and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					dbFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create a config.toml from the bundled template",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles Spotify authorization.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize playlog with Spotify using OAuth2",
		Flags: []cli.Flag{
			configFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Check stored tokens and the authenticated profile",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.AuthStatus,
			},
		},
		Action: r.Auth,
	}
}

// runCommand executes the daily extract-transform-validate-load pass.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch today's plays from Spotify and load them into the store",
		Flags: []cli.Flag{
			configFlag(),
			dbFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of play events to request (capped at 50)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Export the transformed batch to a CSV file",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV output path (implies --save)",
			},
		},
		Action: r.RunPipeline,
	}
}

// runsCommand inspects the run ledger.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recorded pipeline runs",
		Flags: []cli.Flag{
			configFlag(),
			dbFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (running, completed, failed)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Runs,
	}
}

// configCommand inspects and validates the configuration.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the active configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the active configuration with secrets masked",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ConfigShow,
			},
			{
				Name:  "validate",
				Usage: "Check the configuration for problems",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.ConfigValidate,
			},
		},
	}
}
