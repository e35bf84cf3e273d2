package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrNoActiveDevice     = fmt.Errorf("no active device")

	// Injection engine errors
	ErrResolution        = fmt.Errorf("track could not be resolved")
	ErrOracleUnavailable = fmt.Errorf("playback state unavailable")
	ErrInjectionFailed   = fmt.Errorf("injection failed")

	// Session lifecycle errors
	ErrEmptyQueue      = fmt.Errorf("cannot start session with empty queue")
	ErrNothingResolved = fmt.Errorf("no playable tracks in queue")
	ErrPlaybackFailed  = fmt.Errorf("failed to start playback")
	ErrNoSession       = fmt.Errorf("no active session")
	ErrAlreadyStarted  = fmt.Errorf("session already started")
	ErrSessionStopped  = fmt.Errorf("session stopped")

	// Journal errors
	ErrNoJournal       = fmt.Errorf("no session journal found")
	ErrMalformedRecord = fmt.Errorf("malformed journal record")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
