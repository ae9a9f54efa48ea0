package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/pipeline"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// runSummary is the JSON shape of a completed pass.
type runSummary struct {
	Extracted   int                 `json:"extracted"`
	Inserted    int                 `json:"inserted"`
	Conflicts   int                 `json:"conflicts"`
	Loaded      bool                `json:"loaded"`
	RunSequence int                 `json:"run_sequence,omitempty"`
	RunStatus   string              `json:"run_status,omitempty"`
	Records     []models.PlayRecord `json:"records"`
}

// RunPipeline executes the daily extract-transform-validate-load pass.
func (r *Runner) RunPipeline(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	outputFile := cmd.String("output")
	save := cmd.Bool("save") || outputFile != ""
	limit := int(cmd.Int("limit"))

	config := r.ensureConfig(cmd)

	source, err := r.ensureSource(ctx, config)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("Failed to close database", "error", err)
			return
		}
		r.logger.Info("Closed database successfully.")
	}()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	engine := pipeline.NewEngine(source, repositories.NewPlayRepository(db), repositories.NewRunRepository(db), r.logger)
	if limit <= 0 {
		limit = config.Extractor.PageLimit
	}
	if limit > 0 {
		engine.SetPageLimit(limit)
	}

	// Progress updates render as they arrive; the channel is drained before
	// any error or summary is written, so the batch table always precedes
	// the outcome.
	progress := make(chan pipeline.ProgressUpdate, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if useJSON {
				continue
			}
			r.renderProgress(update)
		}
	}()

	result, err := engine.Run(ctx, progress)
	if err != nil {
		if reauthed, authErr := r.handleAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				close(progress)
				<-done
				return authErr
			}
			result, err = engine.Run(ctx, progress)
		}
	}
	close(progress)
	<-done

	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			r.writePlainln("⚠ Access token expired. Run 'playlog auth' to reauthorize.")
		}
		return err
	}

	if save {
		if len(result.Records) == 0 {
			r.writePlain("No records to export.\n")
		} else {
			path, exportErr := formatter.WriteCSVExport(result.Records, outputFile)
			if exportErr != nil {
				return fmt.Errorf("failed to export batch: %w", exportErr)
			}
			r.logger.Info("Batch exported", "file", path)
			r.writePlain("✓ Batch exported to %s\n", path)
		}
	}

	if useJSON {
		summary := runSummary{
			Extracted: len(result.Records),
			Inserted:  result.Inserted,
			Conflicts: result.Conflicts,
			Loaded:    result.Loaded,
			Records:   result.Records,
		}
		if result.Run != nil {
			summary.RunSequence = result.Run.Sequence()
			summary.RunStatus = result.Run.Status()
		}
		return r.writeJSON(summary, pretty)
	}

	r.writePlain("\n")
	r.writePlainHeader("Daily Play Log")
	r.writePlain("Extracted: %d\n", len(result.Records))
	r.writePlain("Inserted:  %d\n", result.Inserted)
	r.writePlain("Skipped:   %d\n", result.Conflicts)
	if result.Run != nil {
		r.writePlain("Run:       #%d (%s)\n", result.Run.Sequence(), result.Run.Status())
	}
	r.writePlain("\nETL process completed.\n")

	return nil
}

// renderProgress prints one progress update, expanding the transformed batch
// into a table so the user sees what is about to be validated and loaded.
func (r *Runner) renderProgress(update pipeline.ProgressUpdate) {
	r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)

	if update.Phase != pipeline.PhaseTransform {
		return
	}
	if records, ok := update.Data.([]models.PlayRecord); ok && len(records) > 0 {
		r.writePlain("%s", formatter.BatchTable(records))
	}
}

// ensureSource builds the Spotify service when the runner has none, resumes
// the session from cached tokens, and installs the refresh callback so new
// tokens survive the process.
func (r *Runner) ensureSource(ctx context.Context, config *shared.Config) (services.Source, error) {
	if r.source == nil {
		if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
			return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
		}
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify service: %w", err)
		}
		r.source = svc
	}

	if svc, ok := r.source.(*services.SpotifyService); ok {
		svc.SetHTTPClient(r.httpClient)
		if config.Extractor.RateLimit > 0 {
			svc.SetRateLimit(config.Extractor.RateLimit)
		}
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warn("Failed to persist refreshed token", "error", err)
				return
			}
			r.logger.Info("Persisted refreshed token")
		})
	}

	if oauthSrv, ok := r.source.(services.OAuthService); ok {
		token := config.Credentials.Spotify.Token()
		if token == nil {
			return nil, fmt.Errorf("%w: run 'playlog auth' first", shared.ErrNotAuthenticated)
		}
		if err := oauthSrv.OAuthenticate(ctx, token); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	}

	return r.source, nil
}
