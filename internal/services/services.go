// package services defines the interfaces the injection engine uses to talk to a streaming provider
// and implements them for Spotify.
package services

import (
	"context"

	"github.com/desertthunder/jitdj/internal/models"
)

// Oracle reports what the remote player is doing right now.
type Oracle interface {
	// Snapshot returns the current playback state. Failures wrap [shared.ErrOracleUnavailable].
	Snapshot(ctx context.Context) (models.PlaybackSnapshot, error)
}

// Player mutates the remote player.
type Player interface {
	// StartPlayback replaces whatever is playing with uri.
	StartPlayback(ctx context.Context, uri string) error

	// Enqueue appends uri to the provider's native queue.
	Enqueue(ctx context.Context, uri string) error
}

// Service is a streaming provider that can resolve tracks, report playback and accept injections.
type Service interface {
	Oracle
	Player

	// Resolve maps a title and artist to a playable identifier.
	Resolve(ctx context.Context, title, artist string) (string, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
