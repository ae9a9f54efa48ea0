package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/playlog/internal/shared"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}

			if srv.config.RedirectURL != "http://localhost:9999/callback" {
				t.Errorf("expected configured redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewSpotifyService(credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials for missing client_id, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewSpotifyService(credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials for missing client_secret, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv := newTestService(t)

			if srv.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Requests Play History Scopes", func(t *testing.T) {
			srv := newTestService(t)

			scopes := strings.Join(srv.config.Scopes, " ")
			if !strings.Contains(scopes, "user-read-recently-played") {
				t.Errorf("expected user-read-recently-played scope, got %s", scopes)
			}
			if !strings.Contains(scopes, "user-library-read") {
				t.Errorf("expected user-library-read scope, got %s", scopes)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv := newTestService(t)

		authURL := srv.GetAuthURL("test_state")
		if authURL == "" {
			t.Error("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "user-read-recently-played") {
			t.Error("auth URL should request the recently-played scope")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv := newTestService(t)

		t.Run("WithAccessToken", func(t *testing.T) {
			authCreds := map[string]string{
				"access_token": "test_access_token",
			}

			err := srv.Authenticate(context.Background(), authCreds)
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.token == nil {
				t.Error("expected token to be set")
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.token.AccessToken)
			}
		})

		t.Run("WithRefreshTokenOnly", func(t *testing.T) {
			refreshed := newTestService(t)

			err := refreshed.Authenticate(context.Background(), map[string]string{
				"refresh_token": "test_refresh_token",
			})
			if err != nil {
				t.Fatalf("expected no error with refresh token, got %v", err)
			}

			if refreshed.token == nil {
				t.Fatal("expected token to be set")
			}

			if !refreshed.token.Expiry.Before(time.Now()) {
				t.Error("refresh-only token should be marked expired to force refresh")
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("OAuthenticate", func(t *testing.T) {
		srv := newTestService(t)

		t.Run("rejects nil token", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("rejects empty token", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), &oauth2.Token{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("accepts full token", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), &oauth2.Token{
				AccessToken:  "access",
				RefreshToken: "refresh",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.httpClient == http.DefaultClient {
				t.Error("expected authenticated client to replace the default client")
			}
		})
	})

	t.Run("Source Interface", func(t *testing.T) {
		srv := newTestService(t)

		var _ Source = srv
		var _ OAuthService = srv

		if srv.GetOAuthConfig() == nil {
			t.Error("expected OAuth config to be exposed")
		}
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv := newTestService(t)

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})

		t.Run("notifyTokenRefresh records the token", func(t *testing.T) {
			var captured *oauth2.Token
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				captured = token
			})

			srv.notifyTokenRefresh(&oauth2.Token{AccessToken: "rotated"})

			if srv.token == nil || srv.token.AccessToken != "rotated" {
				t.Error("expected service token to be updated")
			}
			if captured == nil || captured.AccessToken != "rotated" {
				t.Error("expected callback to receive the rotated token")
			}
		})
	})

	t.Run("SetHTTPClient", func(t *testing.T) {
		t.Run("routes API requests through the injected client", func(t *testing.T) {
			var gotPath string
			client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				gotPath = req.URL.Path
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{"Content-Type": []string{"application/json"}},
					Body:       io.NopCloser(strings.NewReader(`{"id": "user-1"}`)),
					Request:    req,
				}, nil
			})}

			srv := newTestService(t)
			srv.SetHTTPClient(client)
			if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "static"}); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			profile, err := srv.UserProfile(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != "user-1" {
				t.Errorf("expected profile id user-1, got %s", profile.ID)
			}
			if !strings.HasSuffix(gotPath, "/me") {
				t.Errorf("expected request to /me, got %s", gotPath)
			}
		})

		t.Run("ignores nil client", func(t *testing.T) {
			srv := newTestService(t)
			srv.SetHTTPClient(nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected default client to remain")
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			callbackCalled := false
			var capturedToken *oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callbackCalled = true
					capturedToken = token
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !callbackCalled {
				t.Error("expected callback to be called on first fetch")
			}
			if capturedToken == nil || capturedToken.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %+v", capturedToken)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "token1"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			_, _ = source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "same_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{source: mockSource}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			mockSource := &mockTokenSource{
				err: errors.New("token source error"),
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil {
				t.Fatal("expected error from source")
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

// authenticatedTestService creates a service pointed at the given test server
// with a static token already installed.
func authenticatedTestService(t *testing.T, server *httptest.Server) *SpotifyService {
	t.Helper()

	srv := newTestService(t)
	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	srv.baseURL = server.URL

	return srv
}

func TestPlayHistory(t *testing.T) {
	t.Run("requests one page after the watermark", func(t *testing.T) {
		after := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player/recently-played" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			if got := r.URL.Query().Get("after"); got != strconv.FormatInt(after.UnixMilli(), 10) {
				t.Errorf("expected after=%d, got %s", after.UnixMilli(), got)
			}
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit=10, got %s", got)
			}

			if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
				t.Errorf("expected bearer auth header, got %q", auth)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"items": [
					{
						"track": {
							"name": "Windowlicker",
							"album": {
								"name": "Windowlicker",
								"artists": [{"name": "Aphex Twin"}]
							}
						},
						"played_at": "2024-06-15T14:03:21.123Z"
					}
				],
				"limit": 10
			}`))
		}))
		defer server.Close()

		srv := authenticatedTestService(t, server)

		page, err := srv.PlayHistory(context.Background(), after, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(page.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(page.Items))
		}

		item := page.Items[0]
		if item.Track.Name != "Windowlicker" {
			t.Errorf("expected track name Windowlicker, got %s", item.Track.Name)
		}
		if item.PlayedAt != "2024-06-15T14:03:21.123Z" {
			t.Errorf("unexpected played_at %s", item.PlayedAt)
		}
		if len(item.Track.Album.Artists) != 1 || item.Track.Album.Artists[0].Name != "Aphex Twin" {
			t.Errorf("unexpected album artists %+v", item.Track.Album.Artists)
		}
	})

	t.Run("clamps limit to the API maximum", func(t *testing.T) {
		for _, limit := range []int{0, -3, 99} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("limit"); got != "50" {
					t.Errorf("limit %d: expected clamped limit=50, got %s", limit, got)
				}
				w.Write([]byte(`{"items": []}`))
			}))

			srv := authenticatedTestService(t, server)
			if _, err := srv.PlayHistory(context.Background(), time.Now(), limit); err != nil {
				t.Errorf("limit %d: expected no error, got %v", limit, err)
			}

			server.Close()
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		srv := newTestService(t)

		_, err := srv.PlayHistory(context.Background(), time.Now(), 10)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("maps 401 to token expiry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		srv := authenticatedTestService(t, server)

		_, err := srv.PlayHistory(context.Background(), time.Now(), 10)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("maps server errors to API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		srv := authenticatedTestService(t, server)

		_, err := srv.PlayHistory(context.Background(), time.Now(), 10)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestRecentlyPlayed(t *testing.T) {
	t.Run("maps wire items to the neutral page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"items": [
					{
						"track": {
							"name": "Avril 14th",
							"album": {
								"name": "Drukqs",
								"artists": [{"name": "Aphex Twin"}, {"name": "Guest Artist"}]
							}
						},
						"played_at": "2024-06-15T09:12:44.001Z"
					},
					{
						"track": {
							"name": "Flim",
							"album": {
								"name": "Come to Daddy",
								"artists": [{"name": "Aphex Twin"}]
							}
						},
						"played_at": "2024-06-15T09:16:02.998Z"
					}
				]
			}`))
		}))
		defer server.Close()

		srv := authenticatedTestService(t, server)

		page, err := srv.RecentlyPlayed(context.Background(), time.Now(), 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(page.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(page.Items))
		}

		first := page.Items[0]
		if first.Track.Name != "Avril 14th" {
			t.Errorf("expected track Avril 14th, got %s", first.Track.Name)
		}
		if first.Track.Album.Name != "Drukqs" {
			t.Errorf("expected album Drukqs, got %s", first.Track.Album.Name)
		}
		if len(first.Track.Album.Artists) != 2 || first.Track.Album.Artists[0] != "Aphex Twin" {
			t.Errorf("unexpected album artists %v", first.Track.Album.Artists)
		}
		if first.PlayedAt != "2024-06-15T09:12:44.001Z" {
			t.Errorf("unexpected played_at %s", first.PlayedAt)
		}
	})

	t.Run("empty page is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items": [], "limit": 50}`))
		}))
		defer server.Close()

		srv := authenticatedTestService(t, server)

		page, err := srv.RecentlyPlayed(context.Background(), time.Now(), 50)
		if err != nil {
			t.Fatalf("expected no error for empty page, got %v", err)
		}
		if page == nil {
			t.Fatal("expected page, got nil")
		}
		if len(page.Items) != 0 {
			t.Errorf("expected 0 items, got %d", len(page.Items))
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
