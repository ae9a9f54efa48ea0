// Package server provides the temporary HTTP server that receives the OAuth
// callback during CLI authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [LoggingMiddleware] records each request with the CLI's logger.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// When the user runs `playlog auth`, a server starts on the configured
// address (localhost:8080 by default), the browser opens the provider's
// authorization page, and the redirect lands on /callback. The CLI waits on
// [OAuthHandler.Result] and shuts the server down once a result arrives or
// the flow times out.
package server
