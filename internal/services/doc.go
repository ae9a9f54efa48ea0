// Package services defines the [Source] interface for play-history providers and implements it for Spotify.
//
// # Source Interface
//
// A provider exposes authentication and a single-page recently-played fetch,
// letting the pipeline stay provider-agnostic.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh
// token, and a refresh callback lets callers persist rotated tokens.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Source for OAuth providers.
//
// [SpotifyService] implements this for the server-side OAuth flow used by the CLI.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : required credential fields absent
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed
//
// # API Mappings
//
// [SpotifyService] converts provider-specific JSON responses to the neutral
// [RecentlyPlayedPage] shape: each [SpotifyPlayHistoryItem] becomes a
// [PlayedItem] carrying the track name, album name, album artists and the
// played_at timestamp.
package services
