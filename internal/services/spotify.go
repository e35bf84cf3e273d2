package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const trackURIPrefix = "spotify:track:"

// SpotifyOpts tunes a [SpotifyService].
type SpotifyOpts struct {
	DeviceID  string        // Target device; empty uses the active device
	Timeout   time.Duration // Per-request timeout (default: 10s)
	RateLimit float64       // Requests per second (default: 5)
	BaseURL   string        // API base URL override, must end in "/"
	Logger    *log.Logger
}

// SpotifyService implements [Service] on top of the Spotify Web API.
type SpotifyService struct {
	auth       *spotifyauth.Authenticator
	mu         sync.RWMutex
	client     *spotify.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       SpotifyOpts
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts SpotifyOpts) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
		),
	)

	return &SpotifyService{
		auth:    auth,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		opts:    opts,
		logger:  logger,
	}, nil
}

// Authenticate builds an API client from a stored token. Expired access tokens are refreshed on first use.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: missing access or refresh token", shared.ErrNotAuthenticated)
	}
	s.attach(s.auth.Client(ctx, token))
	return nil
}

// AuthURL returns the URL the user visits to grant playback scopes.
func (s *SpotifyService) AuthURL(state string) string {
	return s.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := s.auth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	s.attach(s.auth.Client(ctx, token))
	return token, nil
}

func (s *SpotifyService) attach(httpClient *http.Client) {
	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if s.opts.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.opts.BaseURL))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpClient = httpClient
	s.client = spotify.New(httpClient, opts...)
}

// Token returns the current, possibly refreshed, OAuth2 token.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	httpClient := s.httpClient
	s.mu.RUnlock()

	if httpClient == nil {
		return nil, shared.ErrNotAuthenticated
	}
	transport, ok := httpClient.Transport.(*oauth2.Transport)
	if !ok {
		return nil, fmt.Errorf("%w: client is not using oauth2", shared.ErrNotAuthenticated)
	}
	token, err := transport.Source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return token, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// call waits for the limiter and runs fn under the per-request timeout.
func (s *SpotifyService) call(ctx context.Context, fn func(ctx context.Context, c *spotify.Client) error) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return shared.ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx, client)
}

// Resolve searches the catalog and returns the URI of the best match.
func (s *SpotifyService) Resolve(ctx context.Context, title, artist string) (string, error) {
	query := fmt.Sprintf("track:%s artist:%s", title, artist)

	var uri string
	err := s.call(ctx, func(ctx context.Context, c *spotify.Client) error {
		res, err := c.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return err
		}
		if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
			return fmt.Errorf("%w: %s - %s", shared.ErrTrackNotFound, title, artist)
		}
		uri = string(res.Tracks.Tracks[0].URI)
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) || errors.Is(err, shared.ErrNotAuthenticated) {
			return "", err
		}
		return "", fmt.Errorf("%w: search failed: %v", shared.ErrAPIRequest, err)
	}

	s.logger.Debug("resolved track", "title", title, "artist", artist, "uri", uri)
	return uri, nil
}

// Snapshot reads the player state. An idle player yields a zero snapshot with IsPlaying false.
func (s *SpotifyService) Snapshot(ctx context.Context) (models.PlaybackSnapshot, error) {
	var snap models.PlaybackSnapshot
	err := s.call(ctx, func(ctx context.Context, c *spotify.Client) error {
		state, err := c.PlayerState(ctx)
		if err != nil {
			return err
		}
		snap = snapshotFromState(state)
		return nil
	})
	if err != nil {
		return models.PlaybackSnapshot{}, fmt.Errorf("%w: %v", shared.ErrOracleUnavailable, err)
	}
	snap.TakenAt = time.Now()
	return snap, nil
}

func snapshotFromState(state *spotify.PlayerState) models.PlaybackSnapshot {
	if state == nil {
		return models.PlaybackSnapshot{}
	}

	snap := models.PlaybackSnapshot{
		IsPlaying:  state.Playing,
		Progress:   time.Duration(int(state.Progress)) * time.Millisecond,
		DeviceID:   string(state.Device.ID),
		DeviceName: state.Device.Name,
	}

	if item := state.Item; item != nil {
		snap.TrackURI = string(item.URI)
		snap.Title = item.Name
		snap.Duration = time.Duration(int(item.Duration)) * time.Millisecond

		names := make([]string, 0, len(item.Artists))
		for _, a := range item.Artists {
			names = append(names, a.Name)
		}
		snap.Artist = strings.Join(names, ", ")
	}
	return snap
}

// StartPlayback replaces current playback with uri on the configured device.
func (s *SpotifyService) StartPlayback(ctx context.Context, uri string) error {
	opts := &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI(uri)}}
	if s.opts.DeviceID != "" {
		id := spotify.ID(s.opts.DeviceID)
		opts.DeviceID = &id
	}

	err := s.call(ctx, func(ctx context.Context, c *spotify.Client) error {
		return c.PlayOpt(ctx, opts)
	})
	if err != nil {
		return playerError("start playback", err)
	}
	return nil
}

// Enqueue appends uri to the native queue of the active device.
func (s *SpotifyService) Enqueue(ctx context.Context, uri string) error {
	id, err := trackID(uri)
	if err != nil {
		return err
	}

	err = s.call(ctx, func(ctx context.Context, c *spotify.Client) error {
		if s.opts.DeviceID == "" {
			return c.QueueSong(ctx, id)
		}
		device := spotify.ID(s.opts.DeviceID)
		return c.QueueSongOpt(ctx, id, &spotify.PlayOptions{DeviceID: &device})
	})
	if err != nil {
		return playerError("queue track", err)
	}
	return nil
}

// trackID strips the "spotify:track:" prefix; bare IDs pass through.
func trackID(uri string) (spotify.ID, error) {
	id := strings.TrimPrefix(uri, trackURIPrefix)
	if id == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("%w: not a track uri: %q", shared.ErrInvalidArgument, uri)
	}
	return spotify.ID(id), nil
}

func playerError(op string, err error) error {
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %v", shared.ErrNoActiveDevice, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
