// Package server provides the small local HTTP surface of the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback used by the auth command.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// # Session Status
//
// [StatusHandler] exposes the running injection session as JSON on /status so another terminal
// (or a script) can watch the shadow queue without reading the journal.
package server
