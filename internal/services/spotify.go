// Spotify API implementation of [Source]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/playlog/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// defaultRateLimit caps client-side requests per second.
	defaultRateLimit = 5
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyPlayContext describes where a track was played from (album, playlist, etc).
type SpotifyPlayContext struct {
	Type string `json:"type"`
	Href string `json:"href"`
	URI  string `json:"uri"`
}

// SpotifyPlayHistoryItem represents a single entry in the play history.
type SpotifyPlayHistoryItem struct {
	Track    SpotifyTrack        `json:"track"`
	PlayedAt string              `json:"played_at"`
	Context  *SpotifyPlayContext `json:"context"`
}

type spotifyCursors struct {
	After  string `json:"after"`
	Before string `json:"before"`
}

// SpotifyRecentlyPlayedPage represents the cursor-paginated response of the
// recently-played endpoint.
type SpotifyRecentlyPlayedPage struct {
	Items   []SpotifyPlayHistoryItem `json:"items"`
	Next    *string                  `json:"next"`
	Cursors spotifyCursors           `json:"cursors"`
	Limit   int                      `json:"limit"`
	Href    string                   `json:"href"`
}

// SpotifyService implements the Source interface for Spotify API interactions.
// Uses [oauth2] for authentication and rate-limits outgoing requests.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseClient     *http.Client
	credentials    map[string]string
	baseURL        string
	limiter        *rate.Limiter
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-library-read",
			"user-read-recently-played",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		baseURL:     spotifyBaseURL,
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}, nil
}

// SetRateLimit replaces the client-side request limiter.
// Non-positive values are ignored.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// SetTokenRefreshCallback registers a function invoked whenever the underlying
// token source hands out a new access token, so callers can persist it.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// SetHTTPClient replaces the client used for API and token requests.
// Must be called before [SpotifyService.OAuthenticate] to cover token
// refreshes too.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	if client == nil {
		return
	}
	s.baseClient = client
	s.httpClient = client
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 configuration for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an
// "access_token" (optionally with "refresh_token") or an "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken := credentials["access_token"]
	refreshToken := credentials["refresh_token"]

	if accessToken != "" || refreshToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate authenticates with a previously obtained token.
//
// A token carrying only a refresh token is marked expired so the first request
// forces a refresh.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrMissingCredentials)
	}

	if token.AccessToken == "" && token.RefreshToken != "" {
		token.Expiry = time.Now().Add(-time.Minute)
	}

	clientCtx := ctx
	if s.baseClient != nil {
		clientCtx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(clientCtx, token),
		callback: s.notifyTokenRefresh,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(clientCtx, source)

	return nil
}

// notifyTokenRefresh records a freshly issued token and forwards it to the
// registered callback.
func (s *SpotifyService) notifyTokenRefresh(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the access token it hands out changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}

	return token, nil
}

// doRequest performs an authenticated, rate-limited HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited (retry-after %s)", shared.ErrAPIRequest, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PlayHistory retrieves one page of the user's play history after the given
// watermark, in the provider's wire format.
//
// The after bound is serialized as epoch milliseconds. The limit is clamped
// to Spotify's 1-50 range, defaulting to 50.
func (s *SpotifyService) PlayHistory(ctx context.Context, after time.Time, limit int) (*SpotifyRecentlyPlayedPage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/player/recently-played?after=%d&limit=%d", after.UnixMilli(), limit)

	var page SpotifyRecentlyPlayedPage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// Source interface implementation

// RecentlyPlayed retrieves one page of play events after the watermark and
// maps them to the service-neutral page format.
//
// Only the first page is fetched; the response cursor is not followed.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, after time.Time, limit int) (*RecentlyPlayedPage, error) {
	raw, err := s.PlayHistory(ctx, after, limit)
	if err != nil {
		return nil, err
	}

	page := &RecentlyPlayedPage{Items: make([]PlayedItem, 0, len(raw.Items))}
	for _, item := range raw.Items {
		artists := make([]string, 0, len(item.Track.Album.Artists))
		for _, artist := range item.Track.Album.Artists {
			artists = append(artists, artist.Name)
		}

		page.Items = append(page.Items, PlayedItem{
			PlayedAt: item.PlayedAt,
			Track: PlayedTrack{
				Name: item.Track.Name,
				Album: PlayedAlbum{
					Name:    item.Track.Album.Name,
					Artists: artists,
				},
			},
		})
	}

	return page, nil
}
