package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Request is an unresolved queue entry.
type Request struct {
	Title  string `json:"title" toml:"title"`
	Artist string `json:"artist" toml:"artist"`
}

// Valid reports whether both title and artist are present.
func (r Request) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.Artist) != ""
}

func (r Request) String() string {
	return fmt.Sprintf("%s - %s", r.Title, r.Artist)
}

// QueueItem is a request that resolved to a playable identifier. The identifier is never empty.
type QueueItem struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URI    string `json:"uri"`
}

// NewQueueItem builds a [QueueItem], rejecting an empty identifier.
func NewQueueItem(title, artist, uri string) (QueueItem, error) {
	if strings.TrimSpace(uri) == "" {
		return QueueItem{}, fmt.Errorf("queue item %q by %q has no identifier", title, artist)
	}
	return QueueItem{Title: title, Artist: artist, URI: uri}, nil
}

func (q QueueItem) String() string {
	return fmt.Sprintf("%s - %s", q.Title, q.Artist)
}

// PlaybackSnapshot is a point-in-time view of the remote player.
//
// TrackURI may be empty when nothing is loaded; Title and Artist may be empty for unknown metadata.
type PlaybackSnapshot struct {
	IsPlaying  bool          `json:"is_playing"`
	Progress   time.Duration `json:"progress"`
	Duration   time.Duration `json:"duration"`
	DeviceID   string        `json:"device_id"`
	DeviceName string        `json:"device_name"`
	TrackURI   string        `json:"track_uri"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	TakenAt    time.Time     `json:"taken_at"`
}

// Remaining is Duration - Progress, floored at zero.
func (p PlaybackSnapshot) Remaining() time.Duration {
	if r := p.Duration - p.Progress; r > 0 {
		return r
	}
	return 0
}
