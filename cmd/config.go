package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// maskedConfig is the display shape of the configuration with secrets redacted.
type maskedConfig struct {
	Spotify struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		RedirectURI  string `json:"redirect_uri"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"spotify"`
	Database struct {
		Path string `json:"path"`
	} `json:"database"`
	Server struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	Extractor struct {
		PageLimit int     `json:"page_limit"`
		RateLimit float64 `json:"rate_limit"`
	} `json:"extractor"`
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "(set)"
}

// ConfigShow prints the active configuration with secrets masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	config := r.ensureConfig(cmd)
	spotify := config.Credentials.Spotify

	var view maskedConfig
	view.Spotify.ClientID = spotify.ClientID
	view.Spotify.ClientSecret = mask(spotify.ClientSecret)
	view.Spotify.RedirectURI = spotify.RedirectURI
	view.Spotify.AccessToken = mask(spotify.AccessToken)
	view.Spotify.RefreshToken = mask(spotify.RefreshToken)
	view.Database.Path = config.Database.Path
	view.Server.Host = config.Server.Host
	view.Server.Port = config.Server.Port
	view.Extractor.PageLimit = config.Extractor.PageLimit
	view.Extractor.RateLimit = config.Extractor.RateLimit

	if useJSON {
		return r.writeJSON(view, pretty)
	}

	r.writePlain("Config file: %s\n\n", r.configPath)
	r.writePlain("[credentials.spotify]\n")
	r.writePlain("client_id     = %s\n", view.Spotify.ClientID)
	r.writePlain("client_secret = %s\n", view.Spotify.ClientSecret)
	r.writePlain("redirect_uri  = %s\n", view.Spotify.RedirectURI)
	r.writePlain("access_token  = %s\n", view.Spotify.AccessToken)
	r.writePlain("refresh_token = %s\n\n", view.Spotify.RefreshToken)
	r.writePlain("[database]\n")
	r.writePlain("path = %s\n\n", view.Database.Path)
	r.writePlain("[server]\n")
	r.writePlain("host = %s\n", view.Server.Host)
	r.writePlain("port = %d\n\n", view.Server.Port)
	r.writePlain("[extractor]\n")
	r.writePlain("page_limit = %d\n", view.Extractor.PageLimit)
	r.writePlain("rate_limit = %g\n", view.Extractor.RateLimit)

	return nil
}

// ConfigValidate checks the configuration for problems.
func (r *Runner) ConfigValidate(ctx context.Context, cmd *cli.Command) error {
	config := r.ensureConfig(cmd)

	if err := config.Validate(); err != nil {
		return err
	}

	r.writePlain("✓ Configuration is valid\n")
	return nil
}
