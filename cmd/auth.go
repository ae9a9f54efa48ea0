package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/playlog/internal/server"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens, which are persisted to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config := r.ensureConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	spotifyService.SetHTTPClient(r.httpClient)
	r.source = spotifyService

	token, err := r.doOAuth(config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: playlog run\n")

	return nil
}

// AuthStatus reports whether tokens are cached and still usable.
//
// When tokens exist the authenticated profile is fetched as a liveness check.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.ensureConfig(cmd)
	spotify := config.Credentials.Spotify

	token := spotify.Token()
	if token == nil {
		r.writePlain("✗ Not authenticated. Run 'playlog auth' first.\n")
		return nil
	}

	r.writePlain("✓ Tokens cached in %s\n", r.configPath)

	srv, err := services.NewSpotifyService(spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	srv.SetHTTPClient(r.httpClient)
	if err := srv.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	profile, err := srv.UserProfile(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			r.writePlain("⚠ Access token expired. Run 'playlog auth' to reauthorize.\n")
			return nil
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	name := profile.DisplayName
	if name == "" {
		name = profile.ID
	}
	r.writePlain("✓ Authenticated as %s\n", name)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state := shared.GenerateState()

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// handleAuthError reauthorizes when err is a token expiry.
//
// Returns whether reauthorization ran, so callers can retry the failed
// operation once.
func (r *Runner) handleAuthError(ctx context.Context, err error, cmd *cli.Command) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	oauthSrv, ok := r.source.(services.OAuthService)
	if !ok {
		return false, err
	}

	r.writePlainln("⚠ Access token expired. Starting reauthorization...")

	config := r.ensureConfig(cmd)

	token, oauthErr := r.doOAuth(config, oauthSrv, "reauthorization")
	if oauthErr != nil {
		return true, oauthErr
	}

	if saveErr := r.saveTokens(token); saveErr != nil {
		return true, saveErr
	}

	if authErr := oauthSrv.OAuthenticate(ctx, token); authErr != nil {
		return true, fmt.Errorf("%w: %v", shared.ErrAuthFailed, authErr)
	}

	r.writePlainln("✓ Reauthorization successful")
	return true, nil
}
