// package services defines interface Source for streaming providers that expose a listening history
package services

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Source defines the interface for streaming music providers that can report
// the authenticated user's recently played tracks.
type Source interface {
	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// RecentlyPlayed retrieves one page of play events that occurred strictly
	// after the given watermark. The limit caps the page size; implementations
	// clamp it to the provider's maximum.
	RecentlyPlayed(ctx context.Context, after time.Time, limit int) (*RecentlyPlayedPage, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends Source for providers using the authorization-code flow.
//
// Used by the CLI to drive the browser-based authorization and to resume
// sessions from cached tokens.
type OAuthService interface {
	Source

	// GetAuthURL returns the provider authorization URL for the given state nonce.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the provider's OAuth2 configuration for the callback server.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates directly with a previously obtained token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// RecentlyPlayedPage is one page of play history from a source.
type RecentlyPlayedPage struct {
	Items []PlayedItem
}

// PlayedItem is a single play event from any service.
type PlayedItem struct {
	Track    PlayedTrack
	PlayedAt string // full ISO-8601 timestamp assigned by the service
}

// PlayedTrack carries the track fields the pipeline consumes.
type PlayedTrack struct {
	Name  string
	Album PlayedAlbum
}

// PlayedAlbum carries album metadata with artists in service order.
type PlayedAlbum struct {
	Name    string
	Artists []string
}
