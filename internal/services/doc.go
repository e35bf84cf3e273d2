// Package services defines the [Service] interface for streaming providers and implements it for Spotify.
//
// # Service Interface
//
// The engine depends on three narrow capabilities:
//   - [Oracle] : reads the current playback snapshot
//   - [Player] : starts playback and appends to the native queue
//   - Resolve : maps (title, artist) to a catalog identifier
//
// # Spotify Implementation
//
// [SpotifyService] wraps the zmb3/spotify Web API client. Authentication uses an OAuth2 refresh
// token; the [oauth2] transport refreshes expired access tokens automatically and the refreshed
// token can be read back with [SpotifyService.Token] and persisted.
//
// Every outbound call waits on a token bucket limiter and runs under a per-call timeout so a hung
// request cannot stall the scheduler.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrOracleUnavailable] : playback state could not be read
//   - [shared.ErrTrackNotFound] : search returned no tracks
//   - [shared.ErrNoActiveDevice] : the provider has no device to play on
//   - [shared.ErrAPIRequest] : any other failed request
package services
